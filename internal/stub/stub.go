// Package stub 用Lua脚本定义外部符号的桩
//
// 脚本中调用 stub(name, fn) 注册桩，fn(m) 收到当前状态的句柄：
//
//	m.get(reg)        常量返回整数，否则返回表达式文本
//	m.set(reg, v)     v为整数或寄存器名
//	m.top(reg)        置为未知
//	m.ret()           从栈上弹出返回地址到pc
package stub

import (
	"sync"

	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

type Stubs struct {
	mu    sync.Mutex
	L     *lua.LState
	cpu   *decoder.CPU
	names []string
}

func newStubs(cpu *decoder.CPU) *Stubs {
	s := &Stubs{L: lua.NewState(), cpu: cpu}
	s.L.SetGlobal("stub", s.L.NewFunction(s.define))
	return s
}

// LoadString 执行脚本并注册其中定义的桩
func LoadString(cpu *decoder.CPU, src string) (*Stubs, error) {
	s := newStubs(cpu)
	if err := s.L.DoString(src); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "stub script")
	}
	return s, nil
}

func LoadFile(cpu *decoder.CPU, path string) (*Stubs, error) {
	s := newStubs(cpu)
	if err := s.L.DoFile(path); err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "stub script %s", path)
	}
	return s, nil
}

// Names 脚本注册的桩
func (s *Stubs) Names() []string {
	return s.names
}

func (s *Stubs) Close() {
	s.L.Close()
}

func (s *Stubs) define(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	s.names = append(s.names, name)
	mapper.RegisterStub(name, func(m *mapper.Mapper) error {
		return s.call(fn, m)
	})
	log.WithField("stub", name).Debug("stub registered")
	return 0
}

func (s *Stubs) call(fn *lua.LFunction, m *mapper.Mapper) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := &handle{cpu: s.cpu, m: m}
	return s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, h.table(s.L))
}

type handle struct {
	cpu *decoder.CPU
	m   *mapper.Mapper
}

func (h *handle) table(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "get", L.NewFunction(h.get))
	L.SetField(t, "set", L.NewFunction(h.set))
	L.SetField(t, "top", L.NewFunction(h.top))
	L.SetField(t, "ret", L.NewFunction(h.ret))
	return t
}

// arg 兼容 m:get(...) 与 m.get(...)
func arg(L *lua.LState, n int) int {
	if _, ok := L.Get(1).(*lua.LTable); ok {
		return n + 1
	}
	return n
}

func (h *handle) reg(L *lua.LState, n int) *expr.Reg {
	name := L.CheckString(arg(L, n))
	r, ok := h.cpu.Reg(name)
	if !ok {
		L.RaiseError("unknown register %s", name)
	}
	return r
}

func (h *handle) get(L *lua.LState) int {
	v := h.m.Read(h.reg(L, 1))
	if c, ok := v.(*expr.Cst); ok {
		L.Push(lua.LNumber(c.Uint64()))
	} else {
		L.Push(lua.LString(v.String()))
	}
	return 1
}

func (h *handle) set(L *lua.LState) int {
	r := h.reg(L, 1)
	var v expr.Expr
	switch x := L.Get(arg(L, 2)).(type) {
	case lua.LNumber:
		v = expr.Const(uint64(int64(x)), r.Size())
	case lua.LString:
		src, ok := h.cpu.Reg(string(x))
		if !ok {
			L.RaiseError("unknown register %s", string(x))
		}
		v = h.m.Read(src)
	default:
		L.ArgError(arg(L, 2), "number or register name expected")
	}
	if err := h.m.Set(r, v); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (h *handle) top(L *lua.LState) int {
	r := h.reg(L, 1)
	if err := h.m.Set(r, expr.NewTop(r.Size())); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (h *handle) stack() *expr.Reg {
	for _, r := range h.cpu.Registers {
		if r.Type == expr.RegStack {
			return r
		}
	}
	return nil
}

func (h *handle) ret(L *lua.LState) int {
	sp := h.stack()
	if sp == nil {
		L.RaiseError("%s has no stack register", h.cpu.Name)
	}
	pc := h.cpu.PC
	v := h.m.Read(expr.NewMem(sp, pc.Size()))
	if err := h.m.Set(pc, v); err != nil {
		L.RaiseError("%s", err.Error())
	}
	next := h.m.Read(expr.Add(sp, expr.Const(uint64(pc.Size()/8), sp.Size())))
	if err := h.m.Set(sp, next); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}
