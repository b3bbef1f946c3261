package smt

import (
	"fmt"

	"gbinsym/internal/expr"

	"github.com/pkg/errors"
)

// DefaultAddrSize 没有位宽的绝对地址使用的地址宽度
const DefaultAddrSize = 32

// Translator 把表达式翻译为位向量项。
// 同名寄存器和符号对应同一个变量；Top、Vec和浮点数对应新变量，
// Vec的取值范围作为附加约束保存在Side中
type Translator struct {
	AddrSize uint32

	vars  map[string]*BitVec
	mems  map[string]*Array
	side  []*Bool
	fresh int
}

func NewTranslator() *Translator {
	return &Translator{
		AddrSize: DefaultAddrSize,
		vars:     make(map[string]*BitVec),
		mems:     make(map[string]*Array),
	}
}

// Side 取出翻译过程中产生的附加约束
func (t *Translator) Side() []*Bool {
	s := t.side
	t.side = nil
	return s
}

// Var 名字对应的变量
func (t *Translator) Var(name string, size uint32) *BitVec {
	key := fmt.Sprintf("%s:%d", name, size)
	if v, ok := t.vars[key]; ok {
		return v
	}
	v := NewBitVec(name, size)
	t.vars[key] = v
	return v
}

func (t *Translator) freshVar(prefix string, size uint32) *BitVec {
	t.fresh++
	return NewBitVec(fmt.Sprintf("%s!%d", prefix, t.fresh), size)
}

// Memory 段和地址宽度对应的内存数组
func (t *Translator) Memory(seg expr.Expr, domain uint32) *Array {
	key := fmt.Sprintf("M%d", domain)
	if seg != nil {
		key = seg.String() + ":" + key
	}
	if a, ok := t.mems[key]; ok {
		return a
	}
	a := NewArray(key, domain)
	t.mems[key] = a
	return a
}

// Cond 1位表达式作为布尔项
func (t *Translator) Cond(e expr.Expr) (*Bool, error) {
	if e.Size() != 1 {
		return nil, &expr.SizeMismatchError{Op: "condition", Left: e.Size(), Right: 1}
	}
	if c, ok := e.(*expr.Cst); ok {
		return NewBoolVal(c.IsOne()), nil
	}
	bv, err := t.BitVec(e)
	if err != nil {
		return nil, err
	}
	return bv.Eq(NewBitVecValInt64(1, 1)), nil
}

// BitVec 翻译表达式，结果的位宽与表达式相同
func (t *Translator) BitVec(e expr.Expr) (*BitVec, error) {
	size := uint32(e.Size())
	switch x := e.(type) {
	case *expr.Cst:
		return NewBitVecVal(x.Value(), size), nil
	case *expr.Sym:
		return t.Var(x.Name, size), nil
	case *expr.Reg:
		return t.Var(x.Name, size), nil
	case *expr.Ext:
		return t.Var("@"+x.Name, size), nil
	case *expr.Flt, *expr.Top:
		return t.freshVar("top", size), nil
	case *expr.Slc:
		inner, err := t.BitVec(x.X)
		if err != nil {
			return nil, err
		}
		return inner.Extract(uint32(x.Pos), uint32(x.Pos)+size-1), nil
	case *expr.Comp:
		var res *BitVec
		for _, p := range x.Parts {
			bv, err := t.BitVec(p.X)
			if err != nil {
				return nil, err
			}
			if res == nil {
				res = bv
			} else {
				res = bv.Concat(res)
			}
		}
		return res, nil
	case *expr.Ptr:
		return t.addr(x)
	case *expr.Mem:
		return t.mem(x)
	case *expr.Tst:
		c, err := t.Cond(x.Cond)
		if err != nil {
			return nil, err
		}
		tv, err := t.BitVec(x.T)
		if err != nil {
			return nil, err
		}
		fv, err := t.BitVec(x.F)
		if err != nil {
			return nil, err
		}
		return c.Ite(tv, fv), nil
	case *expr.Vec:
		v := t.freshVar("vec", size)
		if x.Widened() {
			return v, nil
		}
		arms := make([]*Bool, 0, len(x.Items))
		for _, it := range x.Items {
			bv, err := t.BitVec(it)
			if err != nil {
				return nil, err
			}
			arms = append(arms, v.Eq(bv))
		}
		t.side = append(t.side, Any(arms...))
		return v, nil
	case *expr.Op:
		return t.op(x)
	}
	return nil, errors.Errorf("cannot translate %s (%s)", e, e.Kind())
}

func (t *Translator) addr(p *expr.Ptr) (*BitVec, error) {
	if p.Base == nil {
		size := uint32(p.Size())
		if size == 0 {
			size = t.AddrSize
		}
		return NewBitVecValInt64(p.Disp, size), nil
	}
	return t.BitVec(p.Addr())
}

// mem 依次叠加别名写入后读取
func (t *Translator) mem(m *expr.Mem) (*BitVec, error) {
	a, err := t.addr(m.A)
	if err != nil {
		return nil, err
	}
	arr := t.Memory(m.A.Seg, a.Size())
	for _, mod := range m.Mods {
		ma, err := t.addr(mod.A)
		if err != nil {
			return nil, err
		}
		if ma.Size() != a.Size() || mod.V.Size()%8 != 0 {
			return t.freshVar("mem", uint32(m.Size())), nil
		}
		v, err := t.BitVec(mod.V)
		if err != nil {
			return nil, err
		}
		arr = arr.Write(ma, v, mod.Endian)
	}
	if m.Size()%8 != 0 {
		return nil, errors.Errorf("memory read of %d bits", m.Size())
	}
	return arr.Load(a, int(m.Size()/8), m.Endian), nil
}

func (t *Translator) op(o *expr.Op) (*BitVec, error) {
	l, err := t.BitVec(o.L)
	if err != nil {
		return nil, err
	}
	switch o.Op {
	case expr.OpNot:
		return l.Not(), nil
	case expr.OpNeg:
		return l.Neg(), nil
	}
	r, err := t.BitVec(o.R)
	if err != nil {
		return nil, err
	}
	signed := o.Signed() || o.L.Signed() || o.R.Signed()
	switch o.Op {
	case expr.OpAdd:
		return l.Add(r), nil
	case expr.OpSub:
		return l.Sub(r), nil
	case expr.OpMul:
		return l.Mul(r), nil
	case expr.OpMul2:
		n := l.Size()
		if signed {
			return l.SignExtend(n).Mul(r.SignExtend(n)), nil
		}
		return l.ZeroExtend(n).Mul(r.ZeroExtend(n)), nil
	case expr.OpDiv:
		if signed {
			return l.SDiv(r), nil
		}
		return l.UDiv(r), nil
	case expr.OpMod:
		if signed {
			return l.SRem(r), nil
		}
		return l.URem(r), nil
	case expr.OpAnd:
		return l.And(r), nil
	case expr.OpOr:
		return l.Or(r), nil
	case expr.OpXor:
		return l.Xor(r), nil
	case expr.OpShl:
		return l.Shl(r), nil
	case expr.OpShr:
		return l.Shr(r), nil
	case expr.OpSar:
		return l.AShr(r), nil
	case expr.OpRol:
		return l.Rol(r), nil
	case expr.OpRor:
		return l.Ror(r), nil
	}
	var b *Bool
	switch o.Op {
	case expr.OpEq:
		b = l.Eq(r)
	case expr.OpNe:
		b = l.Ne(r)
	case expr.OpLt:
		if signed {
			b = l.Lt(r)
		} else {
			b = l.Ult(r)
		}
	case expr.OpLe:
		if signed {
			b = l.Le(r)
		} else {
			b = l.Ule(r)
		}
	case expr.OpGt:
		if signed {
			b = l.Gt(r)
		} else {
			b = l.Ugt(r)
		}
	case expr.OpGe:
		if signed {
			b = l.Ge(r)
		} else {
			b = l.Uge(r)
		}
	default:
		return nil, errors.Errorf("unsupported operator %s", o.Op)
	}
	return b.AsBitVec(), nil
}
