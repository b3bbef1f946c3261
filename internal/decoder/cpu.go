package decoder

import (
	"fmt"
	"runtime"

	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Semantic 指令语义：在mapper上更新状态
type Semantic func(ins *Instruction, m *mapper.Mapper) error

// CpuContext 解码上下文
type CpuContext struct {
	Endian expr.Endian // 非0时覆盖定长格式的字节序
	Mode   int
	Vars   map[string]interface{}
}

// CPU 一个架构：解码器、语义表和寄存器
type CPU struct {
	Name      string
	Ctx       *CpuContext
	Disasm    *Disassembler
	Semantics map[string]Semantic
	PC        *expr.Reg
	Registers map[string]*expr.Reg
	MaxLength int
	Strict    bool // 缺少语义时返回NoSemanticsError而不是置Top

	Format     func(*Instruction) string
	CodeHelper func(instrs []*Instruction, misc map[string]interface{})
	Fallback   func(ctx *CpuContext, data []byte, address uint64) (*Instruction, error)
	IsEnd      func(*Instruction) bool
}

// NewCPU 创建空的CPU
func NewCPU(name string, pc *expr.Reg, maxLength int) *CPU {
	return &CPU{
		Name:      name,
		Ctx:       &CpuContext{Vars: make(map[string]interface{})},
		Disasm:    NewDisassembler(),
		Semantics: make(map[string]Semantic),
		PC:        pc,
		Registers: map[string]*expr.Reg{pc.Name: pc},
		MaxLength: maxLength,
	}
}

// AddRegisters 注册寄存器
func (c *CPU) AddRegisters(regs ...*expr.Reg) {
	for _, r := range regs {
		c.Registers[r.Name] = r
	}
}

// Reg 按名字查找寄存器
func (c *CPU) Reg(name string) (*expr.Reg, bool) {
	r, ok := c.Registers[name]
	return r, ok
}

// Disassemble 解码一条指令，所有格式都失败时尝试后备解码器
func (c *CPU) Disassemble(data []byte, address uint64) (*Instruction, error) {
	ins, err := c.Disasm.Decode(c.Ctx, data, address)
	if err != nil {
		var (
			de *DecodeError
			ie *InstructionError
		)
		if (!errors.As(err, &de) && !errors.As(err, &ie)) || c.Fallback == nil {
			return nil, err
		}
		fi, ferr := c.Fallback(c.Ctx, data, address)
		if ferr != nil {
			return nil, err
		}
		ins = fi
		if ins.Misc == nil {
			ins.Misc = make(map[string]interface{})
		}
		ins.Misc[MiscFallback] = true
	}
	ins.cpu = c
	return ins, nil
}

// HasSemantics 是否有该助记符的语义
func (c *CPU) HasSemantics(mnemonic string) bool {
	_, ok := c.Semantics[mnemonic]
	return ok
}

// Execute 执行一条指令；没有语义时，位置操作数置为Top，pc前进
func (c *CPU) Execute(ins *Instruction, m *mapper.Mapper) (err error) {
	sem, ok := c.Semantics[ins.Mnemonic]
	if !ok {
		if c.Strict {
			return &NoSemanticsError{Mnemonic: ins.Mnemonic, Address: ins.Address}
		}
		log.WithFields(log.Fields{
			"cpu":     c.Name,
			"address": fmt.Sprintf("%#x", ins.Address),
		}).Warnf("no semantics for %s", ins.Mnemonic)
		return c.havoc(ins, m)
	}
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if _, rt := r.(runtime.Error); !ok || rt {
				panic(r)
			}
			err = errors.Wrapf(e, "%s at %#x", ins.Mnemonic, ins.Address)
		}
	}()
	if err := sem(ins, m); err != nil {
		return errors.Wrapf(err, "%s at %#x", ins.Mnemonic, ins.Address)
	}
	if x, ok := m.Get(c.PC).(*expr.Ext); ok {
		return m.CallExt(x, ins.Address)
	}
	return nil
}

func (c *CPU) havoc(ins *Instruction, m *mapper.Mapper) error {
	for _, op := range ins.Operands {
		switch op.(type) {
		case *expr.Reg, *expr.Mem, *expr.Slc:
			if err := m.Set(op, expr.NewTop(op.Size())); err != nil {
				log.Debugf("havoc %s: %v", op, err)
			}
		}
	}
	if ins.Type == TypeControlFlow {
		return m.Set(c.PC, expr.NewTop(c.PC.Size()))
	}
	return m.Set(c.PC, expr.AddN(m.Get(c.PC), int64(ins.Length)))
}
