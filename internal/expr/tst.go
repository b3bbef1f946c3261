package expr

import (
	"fmt"
	"strings"
)

// Tst 条件表达式 Cond ? T : F
type Tst struct {
	Cond, T, F Expr
	depth      int
}

// NewTst 带检查的条件构造
func NewTst(c, t, f Expr) (Expr, error) {
	if c.Size() != 1 {
		return nil, &SizeMismatchError{Op: "tst condition", Left: c.Size(), Right: 1}
	}
	if t.Size() != f.Size() {
		return nil, &SizeMismatchError{Op: "tst", Left: t.Size(), Right: f.Size()}
	}
	return ite(c, t, f), nil
}

// Ite 条件构造，出错时panic
func Ite(c, t, f Expr) Expr {
	return Must(NewTst(c, t, f))
}

func ite(c, t, f Expr) Expr {
	if cc, ok := c.(*Cst); ok {
		if cc.IsOne() {
			return t
		}
		return f
	}
	if Equal(t, f) {
		return t
	}
	if IsTop(c) {
		return Must(NewVec(t, f))
	}
	if o, ok := c.(*Op); ok && o.Op == OpNot {
		return ite(o.L, f, t)
	}
	if t.Size() == 1 {
		tc, tok := t.(*Cst)
		_, fok := f.(*Cst)
		if tok && fok {
			if tc.IsOne() {
				return c
			}
			return simplifyUnary(OpNot, c)
		}
	}
	x := &Tst{Cond: c, T: t, F: f, depth: maxDepth(c, t, f) + 1}
	if x.depth > threshold {
		return NewTop(t.Size())
	}
	return x
}

func (x *Tst) Kind() Kind   { return KindTst }
func (x *Tst) Size() uint   { return x.T.Size() }
func (x *Tst) Signed() bool { return x.T.Signed() }
func (x *Tst) Depth() int   { return x.depth }

func (x *Tst) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", x.Cond, x.T, x.F)
}

func (x *Tst) Simplify() Expr {
	return ite(x.Cond.Simplify(), x.T.Simplify(), x.F.Simplify())
}

func (x *Tst) Eval(env Env) (Expr, error) {
	c, err := x.Cond.Eval(env)
	if err != nil {
		return nil, err
	}
	if cc, ok := c.(*Cst); ok {
		if cc.IsOne() {
			return x.T.Eval(env)
		}
		return x.F.Eval(env)
	}
	t, err := x.T.Eval(env)
	if err != nil {
		return nil, err
	}
	f, err := x.F.Eval(env)
	if err != nil {
		return nil, err
	}
	return ite(c, t, f), nil
}

// Vec 可能取值的集合，widened时表示深度超过阈值后被放弃跟踪的集合
type Vec struct {
	Items   []Expr
	size    uint
	widened bool
	depth   int
}

// NewVec 创建集合：展开嵌套集合并去重，只有一个元素时返回该元素
func NewVec(items ...Expr) (Expr, error) {
	if len(items) == 0 {
		return nil, &UndefinedError{What: "empty vec"}
	}
	v := &Vec{size: items[0].Size()}
	seen := make(map[uint64][]Expr)
	var add func(e Expr) error
	add = func(e Expr) error {
		if e.Size() != v.size {
			return &SizeMismatchError{Op: "vec", Left: v.size, Right: e.Size()}
		}
		if w, ok := e.(*Vec); ok {
			if w.widened {
				v.widened = true
			}
			for _, it := range w.Items {
				if err := add(it); err != nil {
					return err
				}
			}
			return nil
		}
		if _, ok := e.(*Top); ok {
			v.widened = true
			return nil
		}
		h := Hash(e)
		for _, s := range seen[h] {
			if Equal(s, e) {
				return nil
			}
		}
		seen[h] = append(seen[h], e)
		v.Items = append(v.Items, e)
		return nil
	}
	for _, e := range items {
		if err := add(e); err != nil {
			return nil, err
		}
	}
	if v.widened && len(v.Items) == 0 {
		return NewTop(v.size), nil
	}
	if !v.widened && len(v.Items) == 1 {
		return v.Items[0], nil
	}
	v.depth = maxDepth(v.Items...) + 1
	if v.depth > threshold {
		v.widened = true
	}
	return v, nil
}

func (v *Vec) Kind() Kind {
	if v.widened {
		return KindVecW
	}
	return KindVec
}

func (v *Vec) Size() uint   { return v.size }
func (v *Vec) Signed() bool { return false }
func (v *Vec) Depth() int   { return v.depth }

// Widened 是否已放弃跟踪
func (v *Vec) Widened() bool { return v.widened }

// Contains 集合中是否包含e
func (v *Vec) Contains(e Expr) bool {
	for _, it := range v.Items {
		if Equal(it, e) {
			return true
		}
	}
	return false
}

func (v *Vec) String() string {
	s := make([]string, len(v.Items))
	for i, it := range v.Items {
		s[i] = it.String()
	}
	if v.widened {
		return "W[" + strings.Join(s, ", ") + "]"
	}
	return "[" + strings.Join(s, ", ") + "]"
}

func (v *Vec) Simplify() Expr {
	if v.widened {
		return v
	}
	items := make([]Expr, len(v.Items))
	for i, it := range v.Items {
		items[i] = it.Simplify()
	}
	return Must(NewVec(items...))
}

func (v *Vec) Eval(env Env) (Expr, error) {
	if v.widened {
		return v, nil
	}
	items := make([]Expr, len(v.Items))
	for i, it := range v.Items {
		x, err := it.Eval(env)
		if err != nil {
			return nil, err
		}
		items[i] = x
	}
	return NewVec(items...)
}
