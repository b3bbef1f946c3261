package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

type testEnv map[string]Expr

func (e testEnv) Lookup(r *Reg) Expr {
	if v, ok := e[r.Name]; ok {
		return v
	}
	return r
}

func (e testEnv) Load(p *Ptr, size uint, endian Endian) (Expr, error) {
	if v, ok := e[p.String()]; ok && v.Size() == size {
		return v, nil
	}
	return NewMemE(p, size, endian, 0), nil
}

var (
	eax = NewReg("eax", 32)
	ebx = NewReg("ebx", 32)
	al  = eax.Alias(0, 8, "al")
	ah  = eax.Alias(8, 8, "ah")
)

func Test_ConstFold(t *testing.T) {
	a := Const(0xfffffffe, 32)
	b := Const(3, 32)
	assert.Equal(t, uint64(1), Add(a, b).(*Cst).Uint64())
	assert.Equal(t, uint64(0xfffffffb), Sub(a, b).(*Cst).Uint64())
	assert.Equal(t, uint64(0xfffffffa), Mul(a, b).(*Cst).Uint64())
	assert.Equal(t, uint64(1), Lt(b, a).(*Cst).Uint64())
	assert.Equal(t, uint64(0), Lt(AsSigned(b), AsSigned(a)).(*Cst).Uint64())
	assert.Equal(t, uint64(0xffffffff), Sar(a, Const(4, 32)).(*Cst).Uint64())
	assert.Equal(t, uint64(0x0fffffff), Shr(a, Const(4, 32)).(*Cst).Uint64())
	assert.Equal(t, uint64(0xfffffffd), Rol(a, Const(1, 32)).(*Cst).Uint64())
	assert.Equal(t, uint64(0x7fffffff), Ror(a, Const(1, 32)).(*Cst).Uint64())
	assert.Equal(t, int64(-2), AsSigned(a).(*Cst).Int64())
	assert.Equal(t, "-0x68", SConst(-104, 13).String())
	assert.True(t, IsTop(Div(a, Const(0, 32))))
	assert.Equal(t, uint64(2), Rem(Const(17, 32), b).(*Cst).Uint64())
	assert.True(t, IsTop(Rem(a, Const(0, 32))))
	m := Mul2(Const(0xffffffff, 32), Const(2, 32)).(*Cst)
	assert.Equal(t, uint(64), m.Size())
	assert.Equal(t, uint64(0x1fffffffe), m.Uint64())
}

func Test_IteBool(t *testing.T) {
	c := Eq(eax, ebx)
	assert.True(t, Equal(c, Ite(c, Const(1, 1), Const(0, 1))))
	assert.True(t, Equal(Not(c), Ite(c, Const(0, 1), Const(1, 1))))
	x := Ite(c, eax, ebx)
	if assert.IsType(t, &Tst{}, x) {
		assert.Equal(t, Expr(eax), x.(*Tst).T)
	}
}

func Test_Identities(t *testing.T) {
	assert.Equal(t, Expr(eax), Add(eax, Const(0, 32)))
	assert.Equal(t, Expr(eax), Mul(Const(1, 32), eax))
	assert.True(t, Equal(Const(0, 32), Xor(eax, eax)))
	assert.True(t, Equal(Const(0, 32), Sub(eax, eax)))
	assert.True(t, Equal(Const(0, 32), And(eax, Const(0, 32))))
	assert.True(t, Equal(Const(1, 1), Eq(eax, eax)))
	assert.Equal(t, Expr(eax), Not(Not(eax)))

	// 常量移到右边
	x := Add(Const(4, 32), eax).(*Op)
	assert.Equal(t, Expr(eax), x.L)
	assert.True(t, Equal(Const(4, 32), x.R))

	// 加减常量合并
	y := Sub(Add(eax, Const(8, 32)), Const(12, 32)).(*Op)
	assert.Equal(t, OpSub, y.Op)
	assert.True(t, Equal(Const(4, 32), y.R))
	assert.Equal(t, "(eax-0x4)", y.String())
	assert.Equal(t, Expr(eax), AddN(AddN(eax, -4), 4))

	// 取反比较
	assert.Equal(t, "(eax!=ebx)", Not(Eq(eax, ebx)).String())
}

func Test_SizeMismatch(t *testing.T) {
	_, err := NewOp(OpAdd, eax, Const(1, 8))
	assert.IsType(t, &SizeMismatchError{}, err)
	_, err = NewSlc(eax, 30, 4)
	assert.IsType(t, &InvalidSliceError{}, err)
	_, err = NewTst(eax, eax, ebx)
	assert.IsType(t, &SizeMismatchError{}, err)

	err = func() (err error) {
		defer Recover(&err)
		Add(eax, al)
		return nil
	}()
	assert.IsType(t, &SizeMismatchError{}, err)
}

func Test_SimplifyIdempotent(t *testing.T) {
	cases := []Expr{
		Add(Add(eax, Const(3, 32)), Const(5, 32)),
		Concat(al, ah, Slice(eax, 16, 16)),
		Ite(Eq(eax, Const(0, 32)), ebx, Xor(ebx, ebx)),
		And(And(eax, Const(0xff00, 32)), Const(0x0ff0, 32)),
		Slice(Concat(Const(0x12, 8), al, Slice(ebx, 0, 16)), 4, 16),
		Overlay(eax, 8, Const(0xab, 8)),
	}
	for _, e := range cases {
		s := e.Simplify()
		assert.Equal(t, e.Size(), s.Size(), e.String())
		assert.True(t, Equal(s, s.Simplify()), e.String())
	}
}

func Test_Slice(t *testing.T) {
	assert.Equal(t, "al", Slice(eax, 0, 8).String())
	assert.Equal(t, "ah", Slice(eax, 8, 8).String())
	assert.Equal(t, uint64(0x34), Slice(Const(0x1234, 16), 0, 8).(*Cst).Uint64())
	assert.Equal(t, "eax[12:16]", Slice(Slice(eax, 8, 16), 4, 4).String())

	// 连续切片拼接还原为原表达式
	assert.Equal(t, Expr(eax), Concat(al, ah, Slice(eax, 16, 16)))

	// 拼接的切片
	c := Concat(Const(0x12, 8), ebx)
	assert.Equal(t, "ebx[4:12]", Slice(c, 12, 8).String())
	s := Slice(c, 4, 8)
	comp, ok := s.(*Comp)
	assert.True(t, ok)
	assert.Equal(t, 2, len(comp.Parts))
	assert.True(t, Equal(Const(1, 4), comp.Parts[0].X))

	// 内存切片
	m := NewMem(eax, 32)
	assert.Equal(t, "M8(eax+0x1)", Slice(m, 8, 8).String())
	mb := NewMemE(eax, 32, BigEndian, 0)
	assert.Equal(t, "M8>(eax+0x2)", Slice(mb, 8, 8).String())

	// 逻辑运算的切片下推
	x := Slice(Xor(eax, ebx), 0, 8)
	assert.Equal(t, "(al^ebx[0:8])", x.String())
}

func Test_ConcatMerge(t *testing.T) {
	c := Concat(Const(0x34, 8), Const(0x12, 8))
	assert.True(t, Equal(Const(0x1234, 16), c))

	m := Concat(NewMem(eax, 8), NewMemE(eax, 8, LittleEndian, 1))
	assert.Equal(t, "M16(eax)", m.String())

	nested := Concat(Concat(al, Const(0, 8)), Slice(ebx, 16, 16))
	assert.Equal(t, 3, len(nested.(*Comp).Parts))
	assert.Equal(t, uint(32), nested.Size())

	assert.Equal(t, Expr(eax), Overlay(Overlay(eax, 8, Const(1, 8)), 8, ah))
}

func Test_TopAbsorbs(t *testing.T) {
	top := NewTop(32)
	assert.True(t, IsTop(Add(eax, top)))
	assert.True(t, IsTop(And(top, Const(0xff, 32))))
	assert.True(t, IsTop(Not(top)))
	assert.Equal(t, uint(1), Eq(top, eax).Size())
	assert.True(t, IsTop(Eq(top, eax)))
	v := Ite(NewTop(1), eax, ebx).(*Vec)
	assert.Equal(t, 2, len(v.Items))
}

func Test_Vec(t *testing.T) {
	v, err := NewVec(eax, ebx, eax, Const(1, 32))
	assert.Nil(t, err)
	assert.Equal(t, 3, len(v.(*Vec).Items))

	one, err := NewVec(eax, eax)
	assert.Nil(t, err)
	assert.Equal(t, Expr(eax), one)

	w := Add(v, Const(1, 32)).(*Vec)
	assert.True(t, w.Contains(Const(2, 32)))
	assert.True(t, w.Contains(AddN(eax, 1)))

	_, err = NewVec(eax, al)
	assert.IsType(t, &SizeMismatchError{}, err)

	old := Threshold()
	defer SetThreshold(old)
	SetThreshold(2)
	deep, err := NewVec(AddN(eax, 1), Xor(eax, ebx))
	assert.Nil(t, err)
	assert.Equal(t, KindVecW, deep.Kind())
	assert.True(t, IsTop(Add(deep, eax)))
}

func Test_Widening(t *testing.T) {
	old := Threshold()
	defer SetThreshold(old)
	SetThreshold(4)
	var x Expr = eax
	for i := 0; i < 10; i++ {
		x = Xor(x, ebx)
		x = Mul(x, eax)
	}
	assert.True(t, IsTop(x))
	assert.Equal(t, uint(32), x.Size())
}

func Test_Eval(t *testing.T) {
	env := testEnv{"eax": Const(5, 32), "ebx": NewReg("esi", 32)}
	e := Add(Mul(eax, Const(3, 32)), ebx)
	r, err := e.Eval(env)
	assert.Nil(t, err)
	assert.Equal(t, "(esi+0xf)", r.String())

	c, err := Ite(Eq(eax, Const(5, 32)), ebx, eax).Eval(env)
	assert.Nil(t, err)
	assert.Equal(t, "esi", c.String())

	s, err := NewSym("main", 0x401000, 32).Eval(env)
	assert.Nil(t, err)
	assert.True(t, Equal(Const(0x401000, 32), s))

	m, err := NewMem(AddN(eax, 4), 32).Eval(env)
	assert.Nil(t, err)
	assert.Equal(t, "M32(0x9)", m.String())

	_, err = eax.Eval(nil)
	assert.Nil(t, err)
}

func Test_Ptr(t *testing.T) {
	p := AsPtr(AddN(eax, -8))
	assert.Equal(t, Expr(eax), p.Base)
	assert.Equal(t, int64(-8), p.Disp)
	assert.Equal(t, "eax-0x8", p.String())
	assert.Equal(t, "(eax-0x8)", p.Addr().String())

	a := AsPtr(Const(0xfffffff0, 32)).Displace(0x20)
	assert.Nil(t, a.Base)
	assert.Equal(t, int64(0x10), a.Disp)

	assert.Equal(t, RelSame, Relate(AsPtr(eax), 4, NewPtr(eax, 0), 4))
	assert.Equal(t, RelDisjoint, Relate(AsPtr(eax), 4, NewPtr(eax, 4), 4))
	assert.Equal(t, RelOverlap, Relate(AsPtr(eax), 4, NewPtr(eax, 2), 4))
	assert.Equal(t, RelUnknown, Relate(AsPtr(eax), 4, AsPtr(ebx), 4))
}

func Test_ApplyMod(t *testing.T) {
	p := AsPtr(eax)
	cur := Const(0xdeadbeef, 32)

	// 已知的部分覆盖
	v := ApplyMod(p, 32, LittleEndian, cur, NewPtr(eax, 1), Const(0x11, 8))
	assert.True(t, Equal(Const(0xdead11ef, 32), v))
	v = ApplyMod(p, 32, BigEndian, cur, NewPtr(eax, 1), Const(0x11, 8))
	assert.True(t, Equal(Const(0xde11beef, 32), v))

	// 可能别名
	v = ApplyMod(p, 32, LittleEndian, cur, AsPtr(ebx), Const(0xbabebabe, 32))
	tst, ok := v.(*Tst)
	assert.True(t, ok)
	assert.Equal(t, "(eax==ebx)", tst.Cond.String())

	// 位宽不同的可能别名
	assert.True(t, IsTop(ApplyMod(p, 32, LittleEndian, cur, AsPtr(ebx), Const(1, 8))))
}

func Test_Props(t *testing.T) {
	e := Ite(Lt(eax, ebx), Shl(eax, Const(2, 32)), Xor(eax, ebx))
	p := Props(e)
	assert.Equal(t, PropCompare|PropShift|PropLogic, p)
	assert.Equal(t, Prop(0), Props(eax))
}

func Test_HashEqual(t *testing.T) {
	a := Add(eax, Const(1, 32))
	b := AddN(NewReg("eax", 32), 1)
	assert.True(t, Equal(a, b))
	assert.Equal(t, Hash(a), Hash(b))
	assert.False(t, Equal(Const(1, 8), Const(1, 16)))
	assert.Empty(t, cmp.Diff(a.String(), b.String()))
}

func Test_Node(t *testing.T) {
	mem := NewMem(Add(eax, Const(4, 32)), 32).WithMods([]Mod{{A: AsPtr(ebx), V: Const(1, 32), Endian: LittleEndian}})
	es := []Expr{
		SConst(-2, 32),
		NewSym("main", 0x401000, 32),
		NewTop(8),
		NewExt("malloc", 32),
		Slice(eax, 8, 8),
		Concat(Const(1, 8), Slice(ebx, 8, 24)),
		mem,
		Ite(Eq(eax, ebx), eax, Const(0, 32)),
		Must(NewVec(eax, ebx, Const(3, 32))),
		Not(eax),
		AsSigned(ebx),
	}
	for _, e := range es {
		d, err := Decode(Encode(e))
		assert.Nil(t, err, e.String())
		assert.True(t, Equal(e, d), cmp.Diff(e.String(), d.String()))
		assert.Equal(t, e.Depth(), d.Depth())
		assert.Equal(t, e.Signed(), d.Signed())
	}

	_, err := Decode(&Node{K: KindOp, Size: 32})
	assert.NotNil(t, err)
	_, err = Decode(&Node{K: KindReg})
	assert.NotNil(t, err)
}
