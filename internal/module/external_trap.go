package module

import (
	"gbinsym/internal/finding"

	log "github.com/sirupsen/logrus"
)

type ExternalTrap struct {
	*BaseModule
}

func NewExternalTrap() *ExternalTrap {
	return &ExternalTrap{
		BaseModule: &BaseModule{
			kindData:  KindDataMap["EX-001"],
			postHooks: []string{AnyInstruction},
			Findings:  make([]*finding.Finding, 0),
		},
	}
}

func (externalTrap *ExternalTrap) Execute(st *State) (findings []*finding.Finding, err error) {
	log.Debug("Entering ExternalTrap")
	defer log.Debug("Exiting ExternalTrap")

	defer func() {
		externalTrap.Findings = append(externalTrap.Findings, findings...)
	}()

	for _, trap := range st.Mapper.Traps() {
		if trap.Address != st.Instruction.Address {
			continue
		}
		f := externalTrap.newFinding(st)
		f.Detail = trap.String()
		findings = append(findings, f)
	}
	return findings, nil
}
