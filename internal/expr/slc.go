package expr

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Slc 表达式的位切片 X[Pos:Pos+size]
type Slc struct {
	X    Expr
	Pos  uint
	Name string
	size uint
	sf   bool
}

// NewSlc 带检查的切片构造
func NewSlc(x Expr, pos, width uint) (Expr, error) {
	if width == 0 || pos+width > x.Size() {
		return nil, &InvalidSliceError{Pos: pos, Width: width, Size: x.Size()}
	}
	return slice(x, pos, width), nil
}

// Slice 切片，越界时panic
func Slice(x Expr, pos, width uint) Expr {
	return Must(NewSlc(x, pos, width))
}

func (s *Slc) Kind() Kind   { return KindSlc }
func (s *Slc) Size() uint   { return s.size }
func (s *Slc) Signed() bool { return s.sf }
func (s *Slc) Depth() int   { return s.X.Depth() + 1 }

func (s *Slc) String() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%s[%d:%d]", s.X, s.Pos, s.Pos+s.size)
}

func (s *Slc) Simplify() Expr {
	return slice(s.X.Simplify(), s.Pos, s.size)
}

func (s *Slc) Eval(env Env) (Expr, error) {
	x, err := s.X.Eval(env)
	if err != nil {
		return nil, err
	}
	r := slice(x, s.Pos, s.size)
	if s.sf {
		r = AsSigned(r)
	}
	return r, nil
}

func slice(x Expr, pos, width uint) Expr {
	if pos == 0 && width == x.Size() {
		return x
	}
	switch v := x.(type) {
	case *Cst:
		r := new(uint256.Int).Rsh(&v.v, pos)
		return ConstInt(r, width)
	case *Sym:
		return slice(v.Value(), pos, width)
	case *Top:
		return NewTop(width)
	case *Slc:
		return slice(v.X, v.Pos+pos, width)
	case *Comp:
		return v.slice(pos, width)
	case *Mem:
		if pos%8 == 0 && width%8 == 0 && len(v.Mods) == 0 {
			var off int64
			if v.Endian == BigEndian {
				off = int64(v.size-pos-width) / 8
			} else {
				off = int64(pos) / 8
			}
			return &Mem{A: v.A.Displace(off), Endian: v.Endian, size: width}
		}
	case *Op:
		switch {
		case v.Op.isLogic():
			if v.R == nil {
				return Must(NewOp(v.Op, slice(v.L, pos, width), nil))
			}
			return Must(NewOp(v.Op, slice(v.L, pos, width), slice(v.R, pos, width)))
		case pos == 0 && (v.Op == OpAdd || v.Op == OpSub || v.Op == OpMul):
			return Must(NewOp(v.Op, slice(v.L, 0, width), slice(v.R, 0, width)))
		case pos == 0 && v.Op == OpNeg:
			return Must(NewOp(OpNeg, slice(v.L, 0, width), nil))
		}
	case *Tst:
		return Ite(v.Cond, slice(v.T, pos, width), slice(v.F, pos, width))
	case *Vec:
		if v.widened {
			return NewTop(width)
		}
		items := make([]Expr, len(v.Items))
		for i, it := range v.Items {
			items[i] = slice(it, pos, width)
		}
		return Must(NewVec(items...))
	}
	s := &Slc{X: x, Pos: pos, size: width}
	if r, ok := x.(*Reg); ok {
		s.Name, _ = r.SubName(pos, width)
	}
	if s.Depth() > threshold {
		return NewTop(width)
	}
	return s
}

// Overlay 用v替换x中从pos开始的位
func Overlay(x Expr, pos uint, v Expr) Expr {
	w := v.Size()
	if pos+w > x.Size() {
		panic(&InvalidSliceError{Pos: pos, Width: w, Size: x.Size()})
	}
	var parts []Expr
	if pos > 0 {
		parts = append(parts, slice(x, 0, pos))
	}
	parts = append(parts, v)
	if pos+w < x.Size() {
		parts = append(parts, slice(x, pos+w, x.Size()-pos-w))
	}
	return Concat(parts...)
}

// Zext 零扩展
func Zext(x Expr, size uint) Expr {
	switch {
	case size == x.Size():
		return x
	case size < x.Size():
		return slice(x, 0, size)
	}
	return Concat(x, Const(0, size-x.Size()))
}

// Sext 符号扩展
func Sext(x Expr, size uint) Expr {
	switch {
	case size == x.Size():
		return x
	case size < x.Size():
		return slice(x, 0, size)
	}
	if c, ok := x.(*Cst); ok {
		return ConstInt(sext(&c.v, c.size), size).withSign(c.sf)
	}
	n := size - x.Size()
	return Concat(x, Ite(slice(x, x.Size()-1, 1), Ones(n), Const(0, n)))
}
