package mapper

import (
	"gbinsym/internal/expr"
	"gbinsym/internal/memory"
)

// HistItem 位置及其完整历史
type HistItem struct {
	Loc     expr.Expr
	History []expr.Expr
}

// State mapper的可序列化内容
type State struct {
	Items            []HistItem
	Conds            []expr.Expr
	Zones            []memory.ZoneState
	Mods             []expr.Mod
	Traps            []Trap
	AssumeNoAliasing bool
}

// State 导出
func (m *Mapper) State() *State {
	s := &State{Conds: m.conds, Traps: m.traps, AssumeNoAliasing: m.AssumeNoAliasing}
	for _, it := range m.Items() {
		s.Items = append(s.Items, HistItem{Loc: it.Loc, History: m.History(it.Loc)})
	}
	s.Zones, s.Mods = m.mem.State()
	return s
}

// FromState 从导出的内容重建
func FromState(s *State) *Mapper {
	m := New()
	for _, it := range s.Items {
		m.order = m.order.Append(it.Loc)
		m.index = m.index.Set(it.Loc, it.History)
	}
	m.mem = memory.Restore(s.Zones, s.Mods)
	m.conds = s.Conds
	m.traps = s.Traps
	m.AssumeNoAliasing = s.AssumeNoAliasing
	return m
}
