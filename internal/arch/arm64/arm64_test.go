package arm64

import (
	"encoding/binary"
	"testing"

	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(ws ...uint32) []byte {
	b := make([]byte, 4*len(ws))
	for i, w := range ws {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}

func run(t *testing.T, code []byte, addr uint64) (*mapper.Mapper, []*decoder.Instruction) {
	c := New()
	m := mapper.New()
	m.MustSet(pc, expr.Const(addr, 64))
	var instrs []*decoder.Instruction
	for off := 0; off < len(code); off += 4 {
		ins, err := c.Disassemble(code[off:], addr+uint64(off))
		require.Nil(t, err)
		require.Nil(t, ins.Execute(m))
		instrs = append(instrs, ins)
	}
	return m, instrs
}

func Test_ADRP(t *testing.T) {
	m, instrs := run(t, []byte{0x67, 0x0a, 0x00, 0xd0}, 0x400924)
	assert.Equal(t, "adrp", instrs[0].Mnemonic)
	assert.Equal(t, "adrp     r7, #0x54e000", instrs[0].String())
	assert.True(t, expr.Equal(expr.Const(0x54e000, 64), m.Get(r[7])), m.Get(r[7]).String())
	assert.True(t, expr.Equal(expr.Const(0x400928, 64), m.Get(pc)))
}

func Test_AddSub(t *testing.T) {
	m, instrs := run(t, words(0x91004020), 0)
	assert.Equal(t, "add      r0, r1, #0x10", instrs[0].String())
	assert.True(t, expr.Equal(expr.AddN(r[1], 16), m.Get(r[0])))

	m, _ = run(t, words(0x11000420), 0)
	assert.True(t, expr.Equal(expr.AddN(w[1], 1), m.Get(w[0])), m.Get(r[0]).String())
	assert.True(t, expr.Equal(expr.Const(0, 32), m.Get(expr.Slice(r[0], 32, 32))))

	m, instrs = run(t, words(0xf100001f, 0x54000040), 0)
	assert.Equal(t, "subs", instrs[0].Mnemonic)
	assert.Equal(t, "b.eq", instrs[1].Mnemonic)
	eq, err := m.Use(map[*expr.Reg]uint64{r[0]: 0})
	assert.Nil(t, err)
	assert.True(t, expr.Equal(expr.Const(0xc, 64), eq.Get(pc)))
	ne, err := m.Use(map[*expr.Reg]uint64{r[0]: 5})
	assert.Nil(t, err)
	assert.True(t, expr.Equal(expr.Const(8, 64), ne.Get(pc)))
}

func Test_MovWide(t *testing.T) {
	m, instrs := run(t, words(0xd2a24681, 0xf28acf01), 0)
	assert.Equal(t, "movz     r1, #0x1234, lsl #16", instrs[0].String())
	assert.True(t, expr.Equal(expr.Const(0x12345678, 64), m.Get(r[1])), m.Get(r[1]).String())
}

func Test_Branches(t *testing.T) {
	m, instrs := run(t, words(0x94000010), 0x1000)
	assert.Equal(t, "bl       0x1040", instrs[0].String())
	assert.True(t, expr.Equal(expr.Const(0x1040, 64), m.Get(pc)))
	assert.True(t, expr.Equal(expr.Const(0x1004, 64), m.Get(lr)))
	misc := make(map[string]interface{})
	codeHelper(instrs, misc)
	assert.Equal(t, true, misc[decoder.FuncCall])

	m, instrs = run(t, words(0xd65f03c0), 0)
	assert.Equal(t, "ret", instrs[0].Mnemonic)
	assert.True(t, expr.Equal(lr, m.Get(pc)))

	m, _ = run(t, words(0x34000082), 0x10)
	assert.IsType(t, &expr.Tst{}, m.Get(pc))
	z, err := m.Use(map[*expr.Reg]uint64{r[2]: 0x100000000})
	assert.Nil(t, err)
	assert.True(t, expr.Equal(expr.Const(0x20, 64), z.Get(pc)))

	m, _ = run(t, words(0xd503201f), 0x10)
	assert.True(t, expr.Equal(expr.Const(0x14, 64), m.Get(pc)))
}

func Test_Fallback(t *testing.T) {
	m, instrs := run(t, words(0xa9bf7bfd), 0)
	assert.Equal(t, "stp", instrs[0].Mnemonic)
	assert.Equal(t, true, instrs[0].Misc[decoder.MiscFallback])
	assert.Equal(t, []expr.Expr{sp}, instrs[0].Operands)
	assert.True(t, expr.IsTop(m.Get(sp)))
	assert.True(t, expr.Equal(lr, m.Get(lr)))

	misc := make(map[string]interface{})
	codeHelper(instrs, misc)
	assert.Equal(t, true, misc[decoder.FuncStart])
}
