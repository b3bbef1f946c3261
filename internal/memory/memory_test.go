package memory

import (
	"testing"

	"gbinsym/internal/expr"

	"github.com/stretchr/testify/assert"
)

var (
	esp = expr.NewReg("esp", 32)
	ebx = expr.NewReg("ebx", 32)
)

func Test_WriteReadBytes(t *testing.T) {
	m := New()
	m.Load(0x1000, []byte{1, 2, 3, 4})
	m.Load(0x1004, []byte{5, 6})

	b, err := m.ReadBytes(0x1001, 4)
	assert.Nil(t, err)
	assert.Equal(t, []byte{2, 3, 4, 5}, b)

	z, _ := m.Zone(&expr.Ptr{})
	assert.Equal(t, 1, z.Len())

	_, err = m.ReadBytes(0x1004, 4)
	assert.IsType(t, &UnmappedError{}, err)

	f, err := m.Fetch(0x1004, 16)
	assert.Nil(t, err)
	assert.Equal(t, []byte{5, 6}, f)

	_, err = m.Fetch(0x2000, 4)
	assert.IsType(t, &UnmappedError{}, err)
}

func Test_Endian(t *testing.T) {
	m := New()
	p := expr.AbsPtr(0x100, 32)
	assert.Nil(t, m.Write(p, expr.Const(0x11223344, 32), expr.LittleEndian))
	b, _ := m.ReadBytes(0x100, 4)
	assert.Equal(t, []byte{0x44, 0x33, 0x22, 0x11}, b)

	assert.Nil(t, m.Write(p, expr.Const(0x11223344, 32), expr.BigEndian))
	b, _ = m.ReadBytes(0x100, 4)
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, b)

	assert.True(t, expr.Equal(expr.Const(0x11223344, 32), BytesConst(b, expr.BigEndian)))
	assert.True(t, expr.Equal(expr.Const(0x44332211, 32), BytesConst(b, expr.LittleEndian)))

	err := m.Write(p, expr.Const(1, 4), expr.LittleEndian)
	assert.IsType(t, &expr.SizeMismatchError{}, err)
}

func Test_SymbolicZone(t *testing.T) {
	m := New()
	p := expr.NewPtr(esp, -8)
	assert.Nil(t, m.Write(p, ebx, expr.LittleEndian))
	assert.Nil(t, m.Write(expr.NewPtr(esp, -6), expr.Const(0xabcd, 16), expr.LittleEndian))

	frags, err := m.Read(expr.NewPtr(esp, -10), 6)
	assert.IsType(t, &UnmappedError{}, err)
	assert.Equal(t, 3, len(frags))
	assert.True(t, frags[0].Hole())
	assert.Equal(t, int64(2), frags[0].Len)
	assert.Equal(t, "ebx[0:16]", frags[1].Value.String())
	assert.Equal(t, []byte{0xcd, 0xab}, frags[2].Data)

	frags, err = m.Read(expr.NewPtr(esp, -7), 1)
	assert.Nil(t, err)
	assert.Equal(t, "ebx[8:16]", frags[0].Value.String())

	assert.Equal(t, 2, len(m.Zones()))
}

func Test_CloneIsolation(t *testing.T) {
	m := New()
	m.Load(0x10, []byte{1, 2, 3, 4})
	c := m.Clone()
	assert.Nil(t, c.Write(expr.AbsPtr(0x11, 32), expr.Const(0xff, 8), expr.LittleEndian))

	b, _ := m.ReadBytes(0x10, 4)
	assert.Equal(t, []byte{1, 2, 3, 4}, b)
	b, _ = c.ReadBytes(0x10, 4)
	assert.Equal(t, []byte{1, 0xff, 3, 4}, b)
	assert.Equal(t, 0, len(m.Mods()))
	assert.Equal(t, 1, len(c.Mods()))
}

func Test_Aliasing(t *testing.T) {
	m := New()
	x := expr.AsPtr(esp)
	y := expr.AsPtr(ebx)
	assert.Nil(t, m.Write(x, expr.Const(0xdeadbeef, 32), expr.LittleEndian))
	assert.Nil(t, m.Aliasing(x, 32))

	assert.Nil(t, m.Write(y, expr.Const(0xbabebabe, 32), expr.LittleEndian))
	mods := m.Aliasing(x, 32)
	assert.Equal(t, 2, len(mods))
	assert.Equal(t, x, mods[0].A)
	assert.Equal(t, y, mods[1].A)

	// 同一区域内不相交的写入不会产生别名
	assert.Nil(t, m.Write(expr.NewPtr(esp, 4), expr.Const(1, 32), expr.LittleEndian))
	assert.Equal(t, 2, len(m.Aliasing(x, 32)))

	// 完全覆盖后之前的写入不再相关
	assert.Nil(t, m.Write(x, expr.Const(2, 32), expr.LittleEndian))
	assert.Nil(t, m.Aliasing(x, 32))
}

func Test_Restore(t *testing.T) {
	m := New()
	m.Load(0x10, []byte{1, 2})
	assert.Nil(t, m.Write(expr.AsPtr(esp), ebx, expr.LittleEndian))
	zones, mods := m.State()
	r := Restore(zones, mods)
	b, err := r.ReadBytes(0x10, 2)
	assert.Nil(t, err)
	assert.Equal(t, []byte{1, 2}, b)
	frags, err := r.Read(expr.AsPtr(esp), 4)
	assert.Nil(t, err)
	assert.Equal(t, expr.Expr(ebx), frags[0].Value)
}
