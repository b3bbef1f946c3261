package module

import (
	"testing"

	"gbinsym/internal/arch/x86"
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(t *testing.T, code []byte, addr uint64) (*decoder.Instruction, *mapper.Mapper) {
	c := x86.New()
	ins, err := c.Disassemble(code, addr)
	require.Nil(t, err)
	m := mapper.New()
	m.MustSet(c.PC, expr.Const(addr, 32))
	require.Nil(t, ins.Execute(m))
	return ins, m
}

func Test_IndirectBranch(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	// jmp eax
	ins, m := step(t, []byte{0xff, 0xe0}, 0x100)
	eax, ok := ins.CPU().Reg("eax")
	require.True(t, ok)

	indirectBranch := NewIndirectBranch()
	result, err := indirectBranch.Execute(&State{Instruction: ins, Mapper: m})
	assert.Nil(t, err)
	require.Equal(t, 1, len(result))
	assert.Equal(t, "IB-001", result[0].ID)
	assert.Equal(t, uint64(0x100), result[0].Address)

	// eax固定后目标唯一
	m, err = m.Assume(expr.Eq(eax, expr.Const(0x10, 32)))
	require.Nil(t, err)
	result, err = indirectBranch.Execute(&State{Instruction: ins, Mapper: m})
	assert.Nil(t, err)
	assert.Equal(t, 0, len(result))

	// jz +5：两个目标都是常量
	ins, m = step(t, []byte{0x74, 0x05}, 0x200)
	result, err = indirectBranch.Execute(&State{Instruction: ins, Mapper: m})
	assert.Nil(t, err)
	assert.Equal(t, 0, len(result))

	assert.Equal(t, 1, len(indirectBranch.GetFindings()))
}

func Test_Leaves(t *testing.T) {
	c := expr.NewReg("c", 1)
	r := expr.NewReg("r", 32)
	e := expr.Ite(c, expr.Const(1, 32), r)
	ls := leaves(e, nil)
	require.Equal(t, 2, len(ls))
	assert.True(t, expr.Equal(ls[0].cond, c))
	assert.True(t, expr.Equal(ls[1].target, r))
}

func Test_MissingSemantics(t *testing.T) {
	c := x86.New()
	// movzx eax, cl
	ins, err := c.Disassemble([]byte{0x0f, 0xb6, 0xc1}, 0)
	require.Nil(t, err)
	missingSemantics := NewMissingSemantics()
	result, err := missingSemantics.Execute(&State{Instruction: ins, Mapper: mapper.New()})
	assert.Nil(t, err)
	require.Equal(t, 1, len(result))
	assert.Equal(t, "mnemonic movzx", result[0].Detail)

	ins, err = c.Disassemble([]byte{0x90}, 0)
	require.Nil(t, err)
	result, err = missingSemantics.Execute(&State{Instruction: ins, Mapper: mapper.New()})
	assert.Nil(t, err)
	assert.Equal(t, 0, len(result))
}

func Test_ExternalTrap(t *testing.T) {
	ins, m := step(t, []byte{0xcc}, 0x30)
	externalTrap := NewExternalTrap()
	result, err := externalTrap.Execute(&State{Instruction: ins, Mapper: m})
	assert.Nil(t, err)
	require.Equal(t, 1, len(result))
	assert.Equal(t, "trap int3 at 0x30", result[0].Detail)
}

func Test_ModuleManager(t *testing.T) {
	mm, err := NewDefaultModuleManager()
	require.Nil(t, err)
	assert.Equal(t, 3, len(mm.Modules))
	assert.Equal(t, 1, len(mm.PostHooks[decoder.TypeControlFlow.String()]))
	assert.Equal(t, 1, len(mm.PreHooks[AnyInstruction]))
	assert.Equal(t, 1, len(mm.PostHooks[AnyInstruction]))

	_, err = NewDefaultModuleManager("nope")
	assert.NotNil(t, err)

	mm, err = NewDefaultModuleManager("missing_semantics", "external_trap")
	require.Nil(t, err)
	ins, m := step(t, []byte{0xcc}, 0x30)
	st := &State{Instruction: ins, Mapper: m}
	pre, err := mm.Pre(st)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(pre))
	post, err := mm.Post(st)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(post))
	// 同一位置重复报告只保留一个
	_, err = mm.Post(st)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(mm.Findings()))
}
