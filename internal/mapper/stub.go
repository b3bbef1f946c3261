package mapper

import (
	"fmt"
	"sort"
	"sync"

	"gbinsym/internal/expr"

	log "github.com/sirupsen/logrus"
)

// Stub 外部函数的效果
type Stub func(m *Mapper) error

var (
	stubsMu sync.RWMutex
	stubs   = make(map[string]Stub)
)

// RegisterStub 注册外部函数桩
func RegisterStub(name string, fn Stub) {
	stubsMu.Lock()
	defer stubsMu.Unlock()
	stubs[name] = fn
}

// LookupStub 查找桩
func LookupStub(name string) (Stub, bool) {
	stubsMu.RLock()
	defer stubsMu.RUnlock()
	fn, ok := stubs[name]
	return fn, ok
}

// Stubs 已注册的桩名
func Stubs() []string {
	stubsMu.RLock()
	defer stubsMu.RUnlock()
	names := make([]string, 0, len(stubs))
	for n := range stubs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Trap 执行到没有桩的外部符号
type Trap struct {
	Address uint64
	Name    string
}

func (t Trap) String() string {
	return fmt.Sprintf("trap %s at %#x", t.Name, t.Address)
}

// AddTrap 记录陷入
func (m *Mapper) AddTrap(addr uint64, name string) {
	m.traps = append(m.traps, Trap{Address: addr, Name: name})
}

// Traps 所有陷入
func (m *Mapper) Traps() []Trap {
	return m.traps
}

// CallExt 执行外部符号的桩，没有注册桩时记录陷入
func (m *Mapper) CallExt(x *expr.Ext, addr uint64) error {
	fn, ok := LookupStub(x.Name)
	if !ok {
		log.WithField("ext", x.Name).Debugf("no stub at %#x", addr)
		m.AddTrap(addr, x.Name)
		return nil
	}
	return fn(m)
}
