package decoder

import (
	"fmt"
	"strings"

	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"
)

// Type 指令类别
type Type int

const (
	TypeDataProcessing Type = iota
	TypeControlFlow
	TypeCPUState
	TypeSystem
	TypeOther
	TypeUndefined
)

var typeNames = [...]string{"data_processing", "control_flow", "cpu_state", "system", "other", "undefined"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "type?"
}

// Misc 中使用的标记
const (
	MiscDelayed   = "delayed"
	MiscAnnul     = "annul"
	MiscFallback  = "fallback"
	MiscSyntax    = "syntax"
	FuncStart     = "func_start"
	FuncCall      = "func_call"
	FuncEnd       = "func_end"
	MiscTruncated = "truncated"
)

// Instruction 解码后的指令
type Instruction struct {
	Address  uint64
	Length   int
	Mnemonic string
	Operands []expr.Expr
	Bytes    []byte
	Type     Type
	Cond     string
	Misc     map[string]interface{}
	Spec     *Spec

	cpu *CPU
}

// CPU 解码该指令的处理器
func (ins *Instruction) CPU() *CPU {
	return ins.cpu
}

// Next 下一条指令的地址
func (ins *Instruction) Next() uint64 {
	return ins.Address + uint64(ins.Length)
}

// Delayed 是否带延迟槽
func (ins *Instruction) Delayed() bool {
	d, _ := ins.Misc[MiscDelayed].(bool)
	return d
}

// Execute 在m上执行指令语义
func (ins *Instruction) Execute(m *mapper.Mapper) error {
	if ins.cpu == nil {
		return &InstructionError{Reason: "no cpu for " + ins.Mnemonic}
	}
	return ins.cpu.Execute(ins, m)
}

func (ins *Instruction) String() string {
	if s, ok := ins.Misc[MiscSyntax].(string); ok {
		return s
	}
	if ins.cpu != nil && ins.cpu.Format != nil {
		return ins.cpu.Format(ins)
	}
	return FormatDefault(ins)
}

// FormatDefault 助记符加逗号分隔的操作数
func FormatDefault(ins *Instruction) string {
	if len(ins.Operands) == 0 {
		return ins.Mnemonic
	}
	ops := make([]string, len(ins.Operands))
	for i, op := range ins.Operands {
		ops[i] = FormatOperand(op)
	}
	return fmt.Sprintf("%-8s %s", ins.Mnemonic, strings.Join(ops, ", "))
}

// FormatOperand 内存操作数显示为[addr]
func FormatOperand(op expr.Expr) string {
	if m, ok := op.(*expr.Mem); ok {
		return fmt.Sprintf("[%s]", m.A)
	}
	return op.String()
}
