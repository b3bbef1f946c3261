package mapper

import (
	"gbinsym/internal/expr"

	"github.com/benbjohnson/immutable"
)

type write struct {
	loc  *expr.Mem
	v    expr.Expr
	done bool
}

// Compose 返回 m<<m0：先执行m0再执行m的效果。
// m中所有的值与内存地址都在m0中求值，然后才写入结果
func (m *Mapper) Compose(m0 *Mapper) (res *Mapper, err error) {
	defer expr.Recover(&err)
	// 内存按写入顺序重放，保持别名关系
	var writes []*write
	for _, mod := range m.mem.Mods() {
		p, err := mod.A.Eval(m0)
		if err != nil {
			return nil, err
		}
		v, err := m0.Eval(mod.V)
		if err != nil {
			return nil, err
		}
		writes = append(writes, &write{loc: expr.NewMemE(p, v.Size(), mod.Endian, 0), v: v})
	}
	res = m0.Clone()
	for _, w := range writes {
		if err := res.mem.Write(w.loc.A, w.v, w.loc.Endian); err != nil {
			return nil, err
		}
	}
	// 位置按m中首次写入的顺序加入
	for _, it := range m.Items() {
		switch l := it.Loc.(type) {
		case *expr.Reg:
			v, err := m0.Eval(it.Value)
			if err != nil {
				return nil, err
			}
			res.record(l, v)
		case *expr.Mem:
			p, err := l.A.Eval(m0)
			if err != nil {
				return nil, err
			}
			key := expr.NewMemE(p, l.Size(), l.Endian, 0)
			for _, w := range writes {
				if !w.done && expr.Equal(w.loc, key) {
					res.record(key, w.v)
					w.done = true
				}
			}
		}
	}
	for _, c := range m.conds {
		v, err := m0.Eval(c)
		if err != nil {
			return nil, err
		}
		if vc, ok := v.(*expr.Cst); ok && vc.IsOne() {
			continue
		}
		res.conds = append(res.conds, v)
	}
	res.traps = append(res.traps, m.traps...)
	res.AssumeNoAliasing = m.AssumeNoAliasing || m0.AssumeNoAliasing
	return res, nil
}

// Then 返回 m>>m1，等价于 m1.Compose(m)
func (m *Mapper) Then(m1 *Mapper) (*Mapper, error) {
	return m1.Compose(m)
}

// Use 在给定寄存器取值的环境下对m求值
func (m *Mapper) Use(binds map[*expr.Reg]uint64) (*Mapper, error) {
	seed := New()
	for r, v := range binds {
		if err := seed.setLoc(r, expr.Const(v, r.Size())); err != nil {
			return nil, err
		}
	}
	return m.Compose(seed)
}

// Merge 合并两个状态：每个位置的值是两边取值的集合，路径条件取析取
func Merge(a, b *Mapper) (res *Mapper, err error) {
	defer expr.Recover(&err)
	res = New()
	res.AssumeNoAliasing = a.AssumeNoAliasing && b.AssumeNoAliasing
	seen := immutable.NewMap(&exprHasher{})
	var locs []expr.Expr
	for _, x := range []*Mapper{a, b} {
		for _, it := range x.Items() {
			if _, ok := seen.Get(it.Loc); !ok {
				seen = seen.Set(it.Loc, true)
				locs = append(locs, it.Loc)
			}
		}
	}
	for _, loc := range locs {
		v, err := expr.NewVec(a.Get(loc), b.Get(loc))
		if err != nil {
			return nil, err
		}
		if err := res.setLoc(loc, v); err != nil {
			return nil, err
		}
	}
	if len(a.conds) > 0 && len(b.conds) > 0 {
		res.conds = []expr.Expr{expr.Or(conjunction(a.conds), conjunction(b.conds))}
	}
	res.traps = append(append(res.traps, a.traps...), b.traps...)
	return res, nil
}

func conjunction(conds []expr.Expr) expr.Expr {
	r := conds[0]
	for _, c := range conds[1:] {
		r = expr.And(r, c)
	}
	return r
}

// Equal 两个状态是否相同：位置集合相同且每个位置的当前值结构相等，路径条件集合相同
func Equal(a, b *Mapper) bool {
	if a.Len() != b.Len() || len(a.conds) != len(b.conds) {
		return false
	}
	for _, it := range a.Items() {
		v := b.current(it.Loc)
		if v == nil || !expr.Equal(v, it.Value) {
			return false
		}
	}
	for _, c := range a.conds {
		found := false
		for _, d := range b.conds {
			if expr.Equal(c, d) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
