package sparc

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
		binary.BigEndian.PutUint32(b[4*i:], w)
	}
	return b
}

func decode(t *testing.T, code []byte, addr uint64) []*decoder.Instruction {
	c := New()
	var instrs []*decoder.Instruction
	for off := 0; off < len(code); off += 4 {
		ins, err := c.Disassemble(code[off:], addr+uint64(off))
		require.Nil(t, err)
		instrs = append(instrs, ins)
	}
	return instrs
}

func run(t *testing.T, code []byte, addr uint64) *mapper.Mapper {
	m := mapper.New()
	m.MustSet(pc, expr.Const(addr, 32))
	for _, ins := range decode(t, code, addr) {
		require.Nil(t, ins.Execute(m))
	}
	return m
}

func Test_Save(t *testing.T) {
	ins := decode(t, []byte{0x9d, 0xe3, 0xbf, 0x98}, 0)[0]
	assert.Equal(t, "save", ins.Mnemonic)
	assert.Equal(t, 3, len(ins.Operands))
	assert.Equal(t, sp, ins.Operands[0])
	assert.Equal(t, int64(-104), ins.Operands[1].(*expr.Cst).Int64())
	assert.Equal(t, sp, ins.Operands[2])
	assert.Equal(t, "save     %sp, -104, %sp", ins.String())
}

func Test_Decode(t *testing.T) {
	instrs := decode(t, words(0x40000010, 0x01000000, 0x81c7e008, 0x81c3e008, 0x81e80000), 0x1000)
	assert.Equal(t, "call     0x1040", instrs[0].String())
	assert.True(t, instrs[0].Delayed())
	assert.Equal(t, "nop", instrs[1].String())
	assert.Equal(t, "ret", instrs[2].Mnemonic)
	assert.Equal(t, decoder.TypeControlFlow, instrs[2].Type)
	assert.Equal(t, "retl", instrs[3].Mnemonic)
	assert.Equal(t, "restore", instrs[4].Mnemonic)

	b := decode(t, words(0x32800004), 0x2000)[0]
	assert.Equal(t, "bne", b.Mnemonic)
	assert.Equal(t, true, b.Misc[decoder.MiscAnnul])
	assert.Equal(t, "bne,a    0x2010", b.String())

	st := decode(t, words(0xd023a040), 0)[0]
	assert.Equal(t, "st       [%sp+64], %o0", st.String())

	misc := make(map[string]interface{})
	codeHelper(decode(t, words(0x9de3bf98, 0x40000010, 0x01000000), 0), misc)
	assert.Equal(t, true, misc[decoder.FuncStart])
	assert.Equal(t, true, misc[decoder.FuncCall])

	_, err := New().Disassemble(words(0x83f00000), 0)
	assert.NotNil(t, err)
}

func Test_Arith(t *testing.T) {
	o0 := r[8]
	m := run(t, words(0x11048d15, 0x90122067), 0)
	assert.True(t, expr.Equal(expr.Const(0x12345467, 32), m.Get(o0)), m.Get(o0).String())
	assert.True(t, expr.Equal(expr.Const(8, 32), m.Get(pc)))

	m = run(t, words(0x80a22000, 0x02800004), 0)
	assert.IsType(t, &expr.Tst{}, m.Get(pc))
	taken, err := m.Use(map[*expr.Reg]uint64{o0: 0})
	assert.Nil(t, err)
	assert.True(t, expr.Equal(expr.Const(0x14, 32), taken.Get(pc)))
	fall, err := m.Use(map[*expr.Reg]uint64{o0: 3})
	assert.Nil(t, err)
	assert.True(t, expr.Equal(expr.Const(0xc, 32), fall.Get(pc)))
}

func Test_Window(t *testing.T) {
	l0 := r[16]
	m := run(t, words(0x9de3bf98), 0)
	assert.True(t, expr.Equal(expr.AddN(sp, -104), m.Get(sp)), m.Get(sp).String())
	assert.True(t, expr.Equal(sp, m.Get(fp)))
	assert.True(t, expr.IsTop(m.Get(l0)))

	m = run(t, words(0x9de3bf98, 0x81e80000), 0)
	for _, x := range Registers()[8:32] {
		assert.True(t, expr.Equal(x, m.Get(x)), x.Name+" = "+m.Get(x).String())
	}
	assert.True(t, expr.Equal(expr.Const(8, 32), m.Get(pc)))
}

func Test_LoadStore(t *testing.T) {
	m := run(t, words(0xd023a040, 0xd203a040), 0)
	assert.True(t, expr.Equal(r[8], m.Get(r[9])))
	assert.True(t, expr.Equal(r[8], m.Get(expr.NewMemE(sp, 32, expr.BigEndian, 64))))
}
