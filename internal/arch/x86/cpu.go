// Package x86 32位x86：解码表、语义和函数识别
package x86

import (
	"fmt"
	"strings"

	"gbinsym/internal/arch"
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"

	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"
)

const maxLength = 15

func init() {
	arch.Register("x86", New)
}

// New 创建x86 CPU
func New() *decoder.CPU {
	c := decoder.NewCPU("x86", eip, maxLength)
	c.AddRegisters(Registers()...)
	c.Ctx.Mode = 32
	c.Disasm = newDisassembler()
	for k, v := range semantics() {
		c.Semantics[k] = v
	}
	c.Format = format
	c.CodeHelper = codeHelper
	c.Fallback = fallback
	c.IsEnd = func(ins *decoder.Instruction) bool {
		return ins.Mnemonic == "hlt"
	}
	return c
}

// format 相对跳转显示为绝对地址
func format(ins *decoder.Instruction) string {
	if ins.Type == decoder.TypeControlFlow && len(ins.Operands) == 1 {
		if c, ok := ins.Operands[0].(*expr.Cst); ok && c.Size() == 32 {
			return fmt.Sprintf("%-8s %#x", ins.Mnemonic, uint32(int64(ins.Next())+c.Int64()))
		}
	}
	return decoder.FormatDefault(ins)
}

func isReg(x expr.Expr, r *expr.Reg) bool {
	return expr.Equal(x, r)
}

// codeHelper 标记函数入口、调用和返回
func codeHelper(instrs []*decoder.Instruction, misc map[string]interface{}) {
	if len(instrs) == 0 {
		return
	}
	if len(instrs) >= 2 {
		i0, i1 := instrs[0], instrs[1]
		if i0.Mnemonic == "push" && isReg(i0.Operands[0], ebp) &&
			i1.Mnemonic == "mov" && isReg(i1.Operands[0], ebp) && isReg(i1.Operands[1], esp) {
			misc[decoder.FuncStart] = true
		}
	}
	switch last := instrs[len(instrs)-1]; last.Mnemonic {
	case "call":
		misc[decoder.FuncCall] = true
	case "ret":
		misc[decoder.FuncEnd] = true
	}
}

func isBranch(op x86asm.Op) bool {
	n := op.String()
	return strings.HasPrefix(n, "J") || strings.HasPrefix(n, "LOOP") || strings.HasPrefix(n, "IRET") ||
		strings.HasSuffix(n, "CALL") || strings.HasSuffix(n, "RET")
}

// fallback 用x86asm解码表中没有的指令，结果没有语义，寄存器操作数执行时置为Top
func fallback(ctx *decoder.CpuContext, data []byte, address uint64) (*decoder.Instruction, error) {
	inst, err := x86asm.Decode(data, ctx.Mode)
	if err != nil {
		return nil, errors.Wrapf(err, "x86asm at %#x", address)
	}
	// 截断或无法识别时x86asm返回Op为0的占位指令
	if inst.Op == 0 || inst.Len == 0 {
		return nil, &decoder.DecodeError{Address: address, Data: data}
	}
	ins := &decoder.Instruction{
		Address:  address,
		Length:   inst.Len,
		Mnemonic: strings.ToLower(inst.Op.String()),
		Bytes:    append([]byte{}, data[:inst.Len]...),
		Type:     decoder.TypeOther,
		Misc:     map[string]interface{}{decoder.MiscSyntax: strings.ToLower(x86asm.IntelSyntax(inst, address, nil))},
	}
	if isBranch(inst.Op) {
		ins.Type = decoder.TypeControlFlow
	}
	for _, a := range inst.Args {
		r, ok := a.(x86asm.Reg)
		if !ok {
			continue
		}
		name := strings.ToLower(r.String())
		for _, x := range Registers() {
			if x.Name == name {
				ins.Operands = append(ins.Operands, x)
			}
		}
		if s, ok := SubRegister(name); ok {
			ins.Operands = append(ins.Operands, s)
		}
	}
	return ins, nil
}
