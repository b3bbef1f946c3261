package expr

import (
	"fmt"
	"strings"
)

// Part 拼接中的一段，Pos为其最低位在整体中的位置
type Part struct {
	Pos uint
	X   Expr
}

// Comp 按位拼接，Parts按Pos递增排列且覆盖整个位宽
type Comp struct {
	Parts []Part
	size  uint
	sf    bool
	depth int
}

// Concat 从低位到高位拼接，结果会被规范化：
// 嵌套拼接展开，相邻常量、连续切片与连续内存读取合并，只有一段时返回该段本身
func Concat(xs ...Expr) Expr {
	flat := make([]Expr, 0, len(xs))
	for _, x := range xs {
		if c, ok := x.(*Comp); ok {
			for _, p := range c.Parts {
				flat = append(flat, p.X)
			}
			continue
		}
		flat = append(flat, x)
	}
	out := make([]Expr, 0, len(flat))
	for _, x := range flat {
		if n := len(out); n > 0 {
			if m, ok := merge(out[n-1], x); ok {
				out[n-1] = m
				continue
			}
		}
		out = append(out, x)
	}
	if len(out) == 1 {
		return out[0]
	}
	c := &Comp{Parts: make([]Part, len(out))}
	for i, x := range out {
		c.Parts[i] = Part{Pos: c.size, X: x}
		c.size += x.Size()
	}
	c.depth = maxDepth(out...) + 1
	if c.depth > threshold {
		return NewTop(c.size)
	}
	return c
}

func merge(a, b Expr) (Expr, bool) {
	switch x := a.(type) {
	case *Cst:
		if y, ok := b.(*Cst); ok && x.size+y.size <= MaxSize {
			v := y.Value()
			v.Lsh(v, x.size)
			v.Or(v, &x.v)
			return ConstInt(v, x.size+y.size), true
		}
	case *Top:
		if y, ok := b.(*Top); ok {
			return NewTop(x.size + y.size), true
		}
	case *Slc:
		if y, ok := b.(*Slc); ok && x.Pos+x.size == y.Pos && Equal(x.X, y.X) {
			return slice(x.X, x.Pos, x.size+y.size), true
		}
	case *Mem:
		y, ok := b.(*Mem)
		if !ok || len(x.Mods) > 0 || len(y.Mods) > 0 || x.Endian != y.Endian ||
			x.size%8 != 0 || y.size%8 != 0 || !SameZone(x.A, y.A) {
			break
		}
		if x.Endian == LittleEndian && y.A.Disp == x.A.Disp+int64(x.size/8) {
			return &Mem{A: x.A, Endian: x.Endian, size: x.size + y.size}, true
		}
		if x.Endian == BigEndian && x.A.Disp == y.A.Disp+int64(y.size/8) {
			return &Mem{A: y.A, Endian: y.Endian, size: x.size + y.size}, true
		}
	}
	return nil, false
}

func (c *Comp) Kind() Kind   { return KindComp }
func (c *Comp) Size() uint   { return c.size }
func (c *Comp) Signed() bool { return c.sf }
func (c *Comp) Depth() int   { return c.depth }

func (c *Comp) String() string {
	var b strings.Builder
	b.WriteString("{")
	for _, p := range c.Parts {
		b.WriteString(fmt.Sprintf(" | [%d:%d]->%s", p.Pos, p.Pos+p.X.Size(), p.X))
	}
	b.WriteString(" | }")
	return b.String()
}

func (c *Comp) Simplify() Expr {
	xs := make([]Expr, len(c.Parts))
	for i, p := range c.Parts {
		xs[i] = p.X.Simplify()
	}
	return Concat(xs...)
}

func (c *Comp) Eval(env Env) (Expr, error) {
	xs := make([]Expr, len(c.Parts))
	for i, p := range c.Parts {
		x, err := p.X.Eval(env)
		if err != nil {
			return nil, err
		}
		xs[i] = x
	}
	r := Concat(xs...)
	if c.sf {
		r = AsSigned(r)
	}
	return r, nil
}

func (c *Comp) slice(pos, width uint) Expr {
	end := pos + width
	var xs []Expr
	for _, p := range c.Parts {
		ps, pe := p.Pos, p.Pos+p.X.Size()
		if pe <= pos || ps >= end {
			continue
		}
		lo, hi := ps, pe
		if lo < pos {
			lo = pos
		}
		if hi > end {
			hi = end
		}
		xs = append(xs, slice(p.X, lo-ps, hi-lo))
	}
	return Concat(xs...)
}
