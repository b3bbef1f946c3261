package expr

import (
	"github.com/holiman/uint256"
)

// fold 常量折叠，b在一元运算时为nil
func fold(op Operator, a, b *Cst) Expr {
	size := a.size
	signed := a.sf || (b != nil && b.sf)
	x := new(uint256.Int).Set(&a.v)
	var y *uint256.Int
	if b != nil {
		y = new(uint256.Int).Set(&b.v)
	}
	sx := func() *uint256.Int { return sext(&a.v, size) }
	sy := func() *uint256.Int { return sext(&b.v, size) }
	r := new(uint256.Int)
	switch op {
	case OpAdd:
		r.Add(x, y)
	case OpSub:
		r.Sub(x, y)
	case OpMul:
		r.Mul(x, y)
	case OpMul2:
		if signed {
			r.Mul(sx(), sy())
		} else {
			r.Mul(x, y)
		}
		return ConstInt(r, 2*size).withSign(signed)
	case OpDiv, OpMod:
		if y.IsZero() {
			return NewTop(size)
		}
		switch {
		case signed && op == OpDiv:
			r.SDiv(sx(), sy())
		case signed:
			r.SMod(sx(), sy())
		case op == OpDiv:
			r.Div(x, y)
		default:
			r.Mod(x, y)
		}
	case OpNeg:
		r.Sub(r, x)
	case OpAnd:
		r.And(x, y)
	case OpOr:
		r.Or(x, y)
	case OpXor:
		r.Xor(x, y)
	case OpNot:
		r.Not(x)
	case OpEq:
		return Bool(x.Eq(y))
	case OpNe:
		return Bool(!x.Eq(y))
	case OpLt, OpLe, OpGt, OpGe:
		var lt, gt bool
		if signed {
			lt, gt = sx().Slt(sy()), sx().Sgt(sy())
		} else {
			lt, gt = x.Lt(y), x.Gt(y)
		}
		switch op {
		case OpLt:
			return Bool(lt)
		case OpLe:
			return Bool(!gt)
		case OpGt:
			return Bool(gt)
		}
		return Bool(!lt)
	case OpShl, OpShr, OpSar:
		n := uint64(size)
		if y.IsUint64() && y.Uint64() < n {
			n = y.Uint64()
		}
		switch op {
		case OpShl:
			if n < uint64(size) {
				r.Lsh(x, uint(n))
			}
		case OpShr:
			if n < uint64(size) {
				r.Rsh(x, uint(n))
			}
		default:
			if n >= uint64(size) {
				n = uint64(size - 1)
			}
			r.SRsh(sx(), uint(n))
		}
	case OpRol, OpRor:
		n := uint(new(uint256.Int).Mod(y, uint256.NewInt(uint64(size))).Uint64())
		if op == OpRor {
			n = (size - n) % size
		}
		if n == 0 {
			r.Set(x)
		} else {
			hi := new(uint256.Int).Lsh(x, n)
			hi.And(hi, mask(size))
			r.Rsh(x, size-n)
			r.Or(r, hi)
		}
	}
	return ConstInt(r, size).withSign(signed)
}

func ffold(op Operator, a, b *Flt) (Expr, bool) {
	if b == nil {
		if op == OpNeg {
			return NewFlt(-a.V, a.size), true
		}
		return nil, false
	}
	switch op {
	case OpAdd:
		return NewFlt(a.V+b.V, a.size), true
	case OpSub:
		return NewFlt(a.V-b.V, a.size), true
	case OpMul:
		return NewFlt(a.V*b.V, a.size), true
	case OpDiv:
		if b.V == 0 {
			return NewTop(a.size), true
		}
		return NewFlt(a.V/b.V, a.size), true
	case OpEq:
		return Bool(a.V == b.V), true
	case OpNe:
		return Bool(a.V != b.V), true
	case OpLt:
		return Bool(a.V < b.V), true
	case OpLe:
		return Bool(a.V <= b.V), true
	case OpGt:
		return Bool(a.V > b.V), true
	case OpGe:
		return Bool(a.V >= b.V), true
	}
	return nil, false
}
