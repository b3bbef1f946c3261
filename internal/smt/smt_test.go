package smt

import (
	"testing"

	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	eax = expr.NewReg("eax", 32)
	ebx = expr.NewReg("ebx", 32)
	esp = expr.NewReg("esp", 32)
)

func Test_Const(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	for i := 0; i < 32; i++ {
		p := math.BigPow(256, int64(i))
		v, overflow := uint256.FromBig(p)
		require.False(t, overflow)
		bv := NewBitVecVal(v, 256)
		got, err := bv.Value()
		require.Nil(t, err)
		assert.Equal(t, p.String(), got.ToBig().String())
		assert.False(t, bv.IsSymbolic())
	}

	tr := NewTranslator()
	bv, err := tr.BitVec(expr.Const(0x1234, 16))
	require.Nil(t, err)
	assert.Equal(t, uint32(16), bv.Size())
	assert.Equal(t, "0x1234", bv.String())

	bv, err = tr.BitVec(eax)
	require.Nil(t, err)
	assert.True(t, bv.IsSymbolic())
	same, _ := tr.BitVec(eax)
	assert.Equal(t, bv.GetRaw(), same.GetRaw())

	b, err := tr.Cond(expr.Eq(eax, eax))
	require.Nil(t, err)
	assert.True(t, b.IsTrue())
	b, err = tr.Cond(expr.Eq(eax, ebx))
	require.Nil(t, err)
	assert.False(t, b.IsTrue())
}

func Test_Solver(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	s, err := NewSolver(expr.Eq(expr.AddN(eax, 1), expr.Const(5, 32)))
	require.Nil(t, err)
	defer s.Close()

	st, err := s.Check()
	require.Nil(t, err)
	assert.Equal(t, Sat, st)
	v, err := s.Value(eax)
	require.Nil(t, err)
	assert.Equal(t, uint64(4), v.Uint64())

	v, err = s.Value(expr.Add(eax, ebx))
	require.Nil(t, err)
	assert.Equal(t, uint(32), v.Size())

	require.Nil(t, s.Add(expr.Eq(eax, expr.Const(3, 32))))
	st, err = s.Check()
	require.Nil(t, err)
	assert.Equal(t, Unsat, st)
	_, err = s.Model()
	assert.NotNil(t, err)

	_, err = NewSolver(eax)
	assert.NotNil(t, err)
}

func Test_IsPossible(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	s, err := NewSolver(expr.Lt(eax, expr.Const(10, 32)))
	require.Nil(t, err)
	defer s.Close()

	ok, err := s.IsPossible(expr.Eq(eax, expr.Const(20, 32)))
	require.Nil(t, err)
	assert.False(t, ok)
	ok, err = s.IsPossible(expr.Eq(eax, expr.Const(5, 32)))
	require.Nil(t, err)
	assert.True(t, ok)

	// 有符号比较
	ok, err = s.IsPossible(expr.Lt(expr.AsSigned(eax), expr.SConst(0, 32)))
	require.Nil(t, err)
	assert.False(t, ok)

	st, err := s.Check()
	require.Nil(t, err)
	assert.Equal(t, Sat, st)
}

func Test_Memory(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	word := expr.NewMem(esp, 32)
	s, err := NewSolver(expr.Eq(word, expr.Const(0x11223344, 32)))
	require.Nil(t, err)
	defer s.Close()

	v, err := s.Value(expr.NewMem(esp, 8))
	require.Nil(t, err)
	assert.Equal(t, uint64(0x44), v.Uint64())
	v, err = s.Value(expr.NewMemE(esp, 16, expr.BigEndian, 2))
	require.Nil(t, err)
	assert.Equal(t, uint64(0x2211), v.Uint64())

	// 别名写入：先读初始值，再叠加对esp的写入
	alias := expr.NewMemE(expr.AddN(esp, 1), 8, expr.LittleEndian, 0).WithMods([]expr.Mod{
		{A: expr.NewPtr(esp, 0), V: expr.Const(0xaabbccdd, 32), Endian: expr.LittleEndian},
	})
	v, err = s.Value(alias)
	require.Nil(t, err)
	assert.Equal(t, uint64(0xcc), v.Uint64())
}

func Test_TstVec(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	vec, err := expr.NewVec(expr.Const(1, 32), expr.Const(2, 32))
	require.Nil(t, err)

	s, err := NewSolver()
	require.Nil(t, err)
	defer s.Close()
	ok, err := s.IsPossible(expr.Eq(vec, expr.Const(3, 32)))
	require.Nil(t, err)
	assert.False(t, ok)
	ok, err = s.IsPossible(expr.Eq(vec, expr.Const(2, 32)))
	require.Nil(t, err)
	assert.True(t, ok)

	zf := expr.Eq(eax, expr.Const(0, 32))
	x := expr.Ite(zf, expr.Const(0x10, 32), expr.Const(0x20, 32))
	require.Nil(t, s.Add(expr.Ne(eax, expr.Const(0, 32))))
	v, err := s.Value(x)
	require.Nil(t, err)
	assert.Equal(t, uint64(0x20), v.Uint64())

	top, err := s.Value(expr.NewTop(8))
	require.Nil(t, err)
	assert.Equal(t, uint(8), top.Size())
}

func Test_Mapper(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	m := mapper.New()
	require.Nil(t, m.Set(eax, expr.AddN(ebx, 1)))
	require.Nil(t, m.Set(expr.NewMem(esp, 32), eax))
	m, err := m.Assume(expr.Eq(ebx, expr.Const(41, 32)))
	require.Nil(t, err)

	s, err := NewSolver()
	require.Nil(t, err)
	defer s.Close()
	require.Nil(t, s.AddMapper(m))
	st, err := s.Check()
	require.Nil(t, err)
	assert.Equal(t, Sat, st)

	got, err := s.Mapper()
	require.Nil(t, err)
	assert.Equal(t, expr.Const(42, 32), got.Get(eax))
}
