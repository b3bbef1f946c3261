package x86

import (
	"testing"

	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run 从addr开始依次执行code中的指令，eip固定为addr
func run(t *testing.T, code []byte, addr uint64) (*mapper.Mapper, []*decoder.Instruction) {
	c := New()
	m := mapper.New()
	m.MustSet(eip, expr.Const(addr, 32))
	var instrs []*decoder.Instruction
	for off := 0; off < len(code); {
		ins, err := c.Disassemble(code[off:], addr+uint64(off))
		require.Nil(t, err)
		require.Nil(t, ins.Execute(m), spew.Sdump(ins))
		instrs = append(instrs, ins)
		off += ins.Length
	}
	return m, instrs
}

func Test_NOP(t *testing.T) {
	m, instrs := run(t, []byte{0x90}, 0)
	assert.Equal(t, 1, instrs[0].Length)
	assert.True(t, expr.Equal(expr.Const(1, 32), m.Get(eip)))
}

func Test_LEAVE(t *testing.T) {
	m, instrs := run(t, []byte{0xc9}, 2)
	assert.Equal(t, "leave", instrs[0].Mnemonic)
	assert.True(t, expr.Equal(expr.AddN(ebp, 4), m.Get(esp)), m.Get(esp).String())
	assert.True(t, expr.Equal(expr.NewMem(ebp, 32), m.Get(ebp)), m.Get(ebp).String())
	assert.True(t, expr.Equal(expr.Const(3, 32), m.Get(eip)))
}

func Test_XOR(t *testing.T) {
	m, instrs := run(t, []byte{0x31, 0xc0}, 0)
	assert.Equal(t, "xor      eax, eax", instrs[0].String())
	assert.True(t, expr.Equal(expr.Const(0, 32), m.Get(eax)))
	assert.True(t, expr.Equal(expr.Const(1, 1), m.Get(zf)))
	assert.True(t, expr.Equal(expr.Const(0, 1), m.Get(cf)))
	assert.True(t, expr.Equal(expr.Const(0, 1), m.Get(of)))
	assert.True(t, expr.Equal(expr.Const(1, 1), m.Get(pf)))
	assert.True(t, expr.Equal(expr.Const(2, 32), m.Get(eip)))
}

func Test_ModRM(t *testing.T) {
	c := New()
	ins, err := c.Disassemble([]byte{0x8b, 0x45, 0xfc}, 0)
	assert.Nil(t, err)
	assert.Equal(t, "mov      eax, [ebp-0x4]", ins.String())

	ins, err = c.Disassemble([]byte{0x8b, 0x44, 0x24, 0x08}, 0)
	assert.Nil(t, err)
	assert.Equal(t, 4, ins.Length)
	assert.Equal(t, "mov      eax, [esp+0x8]", ins.String())

	ins, err = c.Disassemble([]byte{0x8b, 0x04, 0x8d, 0x00, 0x10, 0x00, 0x00}, 0)
	assert.Nil(t, err)
	assert.Equal(t, 7, ins.Length)
	mem, ok := ins.Operands[1].(*expr.Mem)
	assert.True(t, ok)
	assert.Equal(t, int64(0x1000), mem.A.Disp)

	ins, err = c.Disassemble([]byte{0xa1, 0x00, 0x20, 0x00, 0x00}, 0)
	assert.Nil(t, err)
	assert.Equal(t, true, ins.Misc[decoder.MiscFallback])

	ins, err = c.Disassemble([]byte{0x8b, 0x05, 0x00, 0x20, 0x00, 0x00}, 0)
	assert.Nil(t, err)
	assert.Equal(t, "mov      eax, [0x2000]", ins.String())

	// 截断的位移
	ins, err = c.Disassemble([]byte{0x8b, 0x85, 0x00}, 0)
	assert.NotNil(t, err)
	assert.Nil(t, ins)
	_, err = fallback(c.Ctx, []byte{0x8b, 0x85, 0x00}, 0x10)
	var de *decoder.DecodeError
	assert.True(t, errors.As(err, &de))
}

func Test_Frame(t *testing.T) {
	code := []byte{
		0x55,             // push ebp
		0x89, 0xe5,       // mov ebp, esp
		0x83, 0xec, 0x10, // sub esp, 0x10
		0xc7, 0x45, 0xfc, 0x2a, 0x00, 0x00, 0x00, // mov dword [ebp-4], 0x2a
		0x8b, 0x45, 0xfc, // mov eax, [ebp-4]
		0xc9, // leave
		0xc3, // ret
	}
	m, instrs := run(t, code, 0x400)
	assert.Equal(t, 7, len(instrs))
	assert.Equal(t, "sub      esp, 0x10", instrs[2].String())
	assert.True(t, expr.Equal(expr.Const(0x2a, 32), m.Get(eax)), m.Get(eax).String())
	assert.True(t, expr.Equal(ebp, m.Get(ebp)), m.Get(ebp).String())
	assert.True(t, expr.Equal(expr.AddN(esp, 4), m.Get(esp)), m.Get(esp).String())
	assert.True(t, expr.Equal(expr.NewMem(esp, 32), m.Get(eip)), m.Get(eip).String())

	misc := make(map[string]interface{})
	codeHelper(instrs, misc)
	assert.Equal(t, true, misc[decoder.FuncStart])
	assert.Equal(t, true, misc[decoder.FuncEnd])
	assert.Nil(t, misc[decoder.FuncCall])
}

func Test_Branches(t *testing.T) {
	m, instrs := run(t, []byte{0x31, 0xc0, 0x74, 0x02}, 0x10)
	assert.Equal(t, "jz       0x16", instrs[1].String())
	assert.True(t, expr.Equal(expr.Const(0x16, 32), m.Get(eip)))

	m, _ = run(t, []byte{0x85, 0xc0, 0x75, 0x05}, 0)
	assert.IsType(t, &expr.Tst{}, m.Get(eip))
	ok, err := m.Use(map[*expr.Reg]uint64{eax: 0})
	assert.Nil(t, err)
	assert.True(t, expr.Equal(expr.Const(4, 32), ok.Get(eip)))
	ok, err = m.Use(map[*expr.Reg]uint64{eax: 7})
	assert.Nil(t, err)
	assert.True(t, expr.Equal(expr.Const(9, 32), ok.Get(eip)))

	m, instrs = run(t, []byte{0xe8, 0xfb, 0x0f, 0x00, 0x00}, 0x1000)
	assert.Equal(t, "call     0x2000", instrs[0].String())
	assert.True(t, expr.Equal(expr.Const(0x2000, 32), m.Get(eip)))
	assert.True(t, expr.Equal(expr.Const(0x1005, 32), m.Read(expr.NewMem(esp, 32))))
	misc := make(map[string]interface{})
	codeHelper(instrs, misc)
	assert.Equal(t, true, misc[decoder.FuncCall])

	m, _ = run(t, []byte{0xff, 0xe0}, 0)
	assert.True(t, expr.Equal(eax, m.Get(eip)))

	m, _ = run(t, []byte{0xeb, 0xfe}, 0x20)
	assert.True(t, expr.Equal(expr.Const(0x20, 32), m.Get(eip)))
}

func Test_SubRegisters(t *testing.T) {
	m, _ := run(t, []byte{0xb8, 0x78, 0x56, 0x34, 0x12, 0xb4, 0xff}, 0)
	assert.True(t, expr.Equal(expr.Const(0x1234ff78, 32), m.Get(eax)), m.Get(eax).String())
	assert.True(t, expr.Equal(expr.Const(0x78, 8), m.Get(al)))

	m, _ = run(t, []byte{0xb0, 0x01}, 0)
	assert.Equal(t, "{ | [0:8]->0x1 | [8:32]->eax[8:32] | }", m.Get(eax).String())
}

func Test_Trap(t *testing.T) {
	m, _ := run(t, []byte{0xcc}, 0x30)
	assert.Equal(t, 1, len(m.Traps()))
	assert.Equal(t, "int3", m.Traps()[0].Name)
	assert.Equal(t, uint64(0x30), m.Traps()[0].Address)
}

func Test_Fallback(t *testing.T) {
	m, instrs := run(t, []byte{0x0f, 0xb6, 0xc1}, 0)
	assert.Equal(t, "movzx", instrs[0].Mnemonic)
	assert.Equal(t, true, instrs[0].Misc[decoder.MiscFallback])
	assert.True(t, expr.IsTop(m.Get(eax)))
	assert.True(t, expr.Equal(expr.Const(3, 32), m.Get(eip)))
}
