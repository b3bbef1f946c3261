// Package sparc SPARC v8：寄存器窗口、延迟槽分支
package sparc

import (
	"fmt"
	"strconv"
	"strings"

	"gbinsym/internal/arch"
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
)

func init() {
	arch.Register("sparc", New)
}

// New 创建SPARC CPU
func New() *decoder.CPU {
	c := decoder.NewCPU("sparc", pc, 4)
	c.AddRegisters(Registers()...)
	c.Ctx.Endian = expr.BigEndian
	c.Disasm = newDisassembler()
	for k, v := range semantics() {
		c.Semantics[k] = v
	}
	c.Format = format
	c.CodeHelper = codeHelper
	return c
}

func operand(x expr.Expr) string {
	switch v := x.(type) {
	case *expr.Reg:
		return "%" + v.Name
	case *expr.Cst:
		if v.Size() == 13 {
			return strconv.FormatInt(v.Int64(), 10)
		}
		return fmt.Sprintf("%#x", v.Uint64())
	case *expr.Mem:
		p := v.A
		var base string
		switch b := p.Base.(type) {
		case nil:
			return fmt.Sprintf("[%#x]", uint64(p.Disp))
		case *expr.Op:
			base = operand(b.L) + "+" + operand(b.R)
		default:
			base = operand(b)
		}
		switch {
		case p.Disp > 0:
			base += "+" + strconv.FormatInt(p.Disp, 10)
		case p.Disp < 0:
			base += strconv.FormatInt(p.Disp, 10)
		}
		return "[" + base + "]"
	}
	return x.String()
}

func format(ins *decoder.Instruction) string {
	mn := ins.Mnemonic
	if a, _ := ins.Misc[decoder.MiscAnnul].(bool); a {
		mn += ",a"
	}
	switch ins.Mnemonic {
	case "nop", "ret", "retl":
		return ins.Mnemonic
	case "call":
		return fmt.Sprintf("%-8s %#x", mn, target(ins).(*expr.Cst).Uint64())
	case "sethi":
		return fmt.Sprintf("%-8s %%hi(%s), %s", mn, operand(ins.Operands[0]), operand(ins.Operands[1]))
	}
	if ins.Type == decoder.TypeControlFlow && len(ins.Operands) == 1 {
		return fmt.Sprintf("%-8s %#x", mn, target(ins).(*expr.Cst).Uint64())
	}
	ops := make([]string, len(ins.Operands))
	for i, x := range ins.Operands {
		ops[i] = operand(x)
	}
	return fmt.Sprintf("%-8s %s", mn, strings.Join(ops, ", "))
}

// codeHelper save开始函数，call调用，ret/retl返回
func codeHelper(instrs []*decoder.Instruction, misc map[string]interface{}) {
	if len(instrs) == 0 {
		return
	}
	if instrs[0].Mnemonic == "save" {
		misc[decoder.FuncStart] = true
	}
	for _, ins := range instrs {
		switch ins.Mnemonic {
		case "call":
			misc[decoder.FuncCall] = true
		case "ret", "retl":
			misc[decoder.FuncEnd] = true
		}
	}
}
