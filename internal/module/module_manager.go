package module

import (
	"sort"

	"gbinsym/internal/finding"

	"github.com/pkg/errors"
)

type Hook func(*State) ([]*finding.Finding, error)

type ModuleManager struct {
	Modules   []DetectionModule
	PreHooks  map[string][]Hook
	PostHooks map[string][]Hook
}

func NewModuleManager() *ModuleManager {
	return &ModuleManager{
		Modules:   make([]DetectionModule, 0),
		PreHooks:  make(map[string][]Hook),
		PostHooks: make(map[string][]Hook),
	}
}

// NewDefaultModuleManager 加载names中的模块，names为空时加载全部
func NewDefaultModuleManager(names ...string) (*ModuleManager, error) {
	mm := NewModuleManager()
	if len(names) == 0 {
		names = Names()
	}
	for _, name := range names {
		ctor, ok := registry[name]
		if !ok {
			return nil, errors.Errorf("unknown module %q", name)
		}
		mm.AddModule(ctor())
	}
	return mm, nil
}

func (mm *ModuleManager) AddModule(dm DetectionModule) {
	mm.Modules = append(mm.Modules, dm)
	for _, kind := range dm.GetPreHooks() {
		mm.PreHooks[kind] = append(mm.PreHooks[kind], dm.Execute)
	}
	for _, kind := range dm.GetPostHooks() {
		mm.PostHooks[kind] = append(mm.PostHooks[kind], dm.Execute)
	}
}

func run(hooks map[string][]Hook, st *State) ([]*finding.Finding, error) {
	var res []*finding.Finding
	for _, key := range []string{st.Instruction.Type.String(), AnyInstruction} {
		for _, hook := range hooks[key] {
			fs, err := hook(st)
			if err != nil {
				return res, errors.Wrapf(err, "hook at %#x", st.Instruction.Address)
			}
			res = append(res, fs...)
		}
	}
	return res, nil
}

// Pre 执行指令前的hook
func (mm *ModuleManager) Pre(st *State) ([]*finding.Finding, error) {
	return run(mm.PreHooks, st)
}

// Post 执行指令后的hook
func (mm *ModuleManager) Post(st *State) ([]*finding.Finding, error) {
	return run(mm.PostHooks, st)
}

// Findings 所有模块的问题，按地址排序并去重
func (mm *ModuleManager) Findings() []*finding.Finding {
	seen := make(map[string]bool)
	res := make([]*finding.Finding, 0)
	for _, dm := range mm.Modules {
		for _, f := range dm.GetFindings() {
			if seen[f.Key()] {
				continue
			}
			seen[f.Key()] = true
			res = append(res, f)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Address != res[j].Address {
			return res[i].Address < res[j].Address
		}
		return res[i].ID < res[j].ID
	})
	return res
}

var registry = map[string]func() DetectionModule{
	"indirect_branch":   func() DetectionModule { return NewIndirectBranch() },
	"missing_semantics": func() DetectionModule { return NewMissingSemantics() },
	"external_trap":     func() DetectionModule { return NewExternalTrap() },
}

// Names 可用模块名
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
