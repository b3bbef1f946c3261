// Package arm64 ARMv8 AArch64 的一个子集
package arm64

import (
	"encoding/binary"
	"fmt"
	"strings"

	"gbinsym/internal/arch"
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"

	"github.com/pkg/errors"
	"golang.org/x/arch/arm64/arm64asm"
)

func init() {
	arch.Register("arm64", New)
}

// New 创建ARM64 CPU
func New() *decoder.CPU {
	c := decoder.NewCPU("arm64", pc, 4)
	c.AddRegisters(Registers()...)
	c.Disasm = newDisassembler()
	for k, v := range semantics() {
		c.Semantics[k] = v
	}
	c.Format = format
	c.CodeHelper = codeHelper
	c.Fallback = fallback
	return c
}

func operand(x expr.Expr) string {
	switch v := x.(type) {
	case *expr.Reg, *expr.Slc:
		return v.String()
	case *expr.Cst:
		return fmt.Sprintf("#%#x", v.Uint64())
	}
	return x.String()
}

func format(ins *decoder.Instruction) string {
	if len(ins.Operands) == 0 {
		return ins.Mnemonic
	}
	ops := make([]string, 0, len(ins.Operands))
	for i, x := range ins.Operands {
		if strings.HasPrefix(ins.Mnemonic, "mov") && i == 2 {
			if c := x.(*expr.Cst); !c.IsZero() {
				ops = append(ops, fmt.Sprintf("lsl #%d", c.Uint64()))
			}
			continue
		}
		if ins.Type == decoder.TypeControlFlow {
			if c, ok := x.(*expr.Cst); ok {
				ops = append(ops, fmt.Sprintf("%#x", c.Uint64()))
				continue
			}
		}
		ops = append(ops, operand(x))
	}
	return fmt.Sprintf("%-8s %s", ins.Mnemonic, strings.Join(ops, ", "))
}

// codeHelper 以保存x29和x30的stp开头的块是函数入口
func codeHelper(instrs []*decoder.Instruction, misc map[string]interface{}) {
	if len(instrs) == 0 {
		return
	}
	if s, ok := instrs[0].Misc[decoder.MiscSyntax].(string); ok && instrs[0].Mnemonic == "stp" &&
		strings.Contains(s, "x29") && strings.Contains(s, "x30") {
		misc[decoder.FuncStart] = true
	}
	switch instrs[len(instrs)-1].Mnemonic {
	case "bl", "blr":
		misc[decoder.FuncCall] = true
	case "ret":
		misc[decoder.FuncEnd] = true
	}
}

var fallbackBranches = map[string]bool{
	"B": true, "BL": true, "BR": true, "BLR": true, "RET": true,
	"CBZ": true, "CBNZ": true, "TBZ": true, "TBNZ": true, "ERET": true,
}

func regByName(name string) (expr.Expr, bool) {
	switch {
	case name == "sp":
		return sp, true
	case name == "xzr" || name == "wzr":
		return nil, false
	case len(name) > 1 && (name[0] == 'x' || name[0] == 'w'):
		var n int
		if _, err := fmt.Sscanf(name[1:], "%d", &n); err != nil || n > 30 {
			return nil, false
		}
		if name[0] == 'w' {
			return w[n], true
		}
		return r[n], true
	}
	return nil, false
}

// fallback 用arm64asm解码表中没有的指令，寄存器操作数执行时置为Top
func fallback(ctx *decoder.CpuContext, data []byte, address uint64) (*decoder.Instruction, error) {
	if len(data) < 4 {
		return nil, &decoder.DecodeError{Address: address, Data: data}
	}
	word := data[:4]
	if ctx.Endian == expr.BigEndian {
		word = make([]byte, 4)
		binary.LittleEndian.PutUint32(word, binary.BigEndian.Uint32(data))
	}
	inst, err := arm64asm.Decode(word)
	if err != nil {
		return nil, errors.Wrapf(err, "arm64asm at %#x", address)
	}
	op := inst.Op.String()
	ins := &decoder.Instruction{
		Address:  address,
		Length:   4,
		Mnemonic: strings.ToLower(op),
		Bytes:    append([]byte{}, data[:4]...),
		Type:     decoder.TypeOther,
		Misc:     map[string]interface{}{decoder.MiscSyntax: strings.ToLower(arm64asm.GNUSyntax(inst))},
	}
	if fallbackBranches[op] {
		ins.Type = decoder.TypeControlFlow
	}
	// 存储指令只有回写的基址寄存器被修改
	if strings.HasPrefix(op, "ST") {
		syntax := ins.Misc[decoder.MiscSyntax].(string)
		i := strings.Index(syntax, "[")
		if i >= 0 && (strings.Contains(syntax, "]!") || strings.Contains(syntax, "],")) {
			base := strings.FieldsFunc(syntax[i+1:], func(c rune) bool { return c == ',' || c == ']' })
			if len(base) > 0 {
				if x, ok := regByName(strings.TrimSpace(base[0])); ok {
					ins.Operands = append(ins.Operands, x)
				}
			}
		}
		return ins, nil
	}
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		if x, ok := regByName(strings.ToLower(a.String())); ok {
			ins.Operands = append(ins.Operands, x)
		}
	}
	return ins, nil
}
