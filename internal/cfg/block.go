package cfg

import (
	"fmt"

	"gbinsym/internal/decoder"
	"gbinsym/internal/mapper"

	"github.com/pkg/errors"
)

// Block 基本块：以控制流指令结束，带延迟槽时包含槽中的指令
type Block struct {
	Instructions []*decoder.Instruction
	Misc         map[string]interface{}

	m *mapper.Mapper
}

// NewBlock 创建块并调用架构的codehelper
func NewBlock(instrs []*decoder.Instruction) *Block {
	b := &Block{Instructions: instrs, Misc: make(map[string]interface{})}
	if len(instrs) > 0 {
		if cpu := instrs[0].CPU(); cpu != nil && cpu.CodeHelper != nil {
			cpu.CodeHelper(instrs, b.Misc)
		}
	}
	return b
}

func (b *Block) Address() uint64 {
	if len(b.Instructions) == 0 {
		return 0
	}
	return b.Instructions[0].Address
}

// Length 字节数
func (b *Block) Length() int {
	n := 0
	for _, ins := range b.Instructions {
		n += ins.Length
	}
	return n
}

// End 块之后的第一个地址
func (b *Block) End() uint64 {
	return b.Address() + uint64(b.Length())
}

// Has 是否带有codehelper设置的标记
func (b *Block) Has(tag string) bool {
	v, ok := b.Misc[tag]
	if !ok {
		return false
	}
	if f, ok := v.(bool); ok {
		return f
	}
	return true
}

// Terminator 返回结束块的控制流指令的下标，没有时返回-1
func (b *Block) Terminator() int {
	for i := len(b.Instructions) - 1; i >= 0; i-- {
		if b.Instructions[i].Type == decoder.TypeControlFlow {
			return i
		}
	}
	return -1
}

// Last 结束块的指令（不含延迟槽）
func (b *Block) Last() *decoder.Instruction {
	if t := b.Terminator(); t >= 0 {
		return b.Instructions[t]
	}
	return b.Instructions[len(b.Instructions)-1]
}

// annulled 无条件跳转且置a位时延迟槽不执行
func annulled(ins *decoder.Instruction) bool {
	a, _ := ins.Misc[decoder.MiscAnnul].(bool)
	return a && ins.Cond == "a"
}

// Sequence 执行顺序：延迟槽中的指令先于跳转执行
func (b *Block) Sequence() []*decoder.Instruction {
	t := b.Terminator()
	if t < 0 || !b.Instructions[t].Delayed() || t == len(b.Instructions)-1 {
		return b.Instructions
	}
	seq := make([]*decoder.Instruction, 0, len(b.Instructions))
	seq = append(seq, b.Instructions[:t]...)
	if !annulled(b.Instructions[t]) {
		seq = append(seq, b.Instructions[t+1:]...)
	}
	return append(seq, b.Instructions[t])
}

// Mapper 块的符号执行结果，结果会被缓存
func (b *Block) Mapper() (*mapper.Mapper, error) {
	if b.m != nil {
		return b.m, nil
	}
	m := mapper.New()
	for _, ins := range b.Sequence() {
		if err := ins.Execute(m); err != nil {
			return nil, errors.Wrapf(err, "block %#x", b.Address())
		}
	}
	b.m = m
	return m, nil
}

// Cut 在addr处把块分成两部分，addr必须是指令边界且不能分开跳转和延迟槽
func (b *Block) Cut(addr uint64) (*Block, *Block, error) {
	t := b.Terminator()
	for i, ins := range b.Instructions {
		if ins.Address != addr {
			continue
		}
		if i == 0 || (i == t+1 && t >= 0 && b.Instructions[t].Delayed()) {
			break
		}
		pre := NewBlock(b.Instructions[:i:i])
		pre.Misc[decoder.MiscTruncated] = true
		return pre, NewBlock(b.Instructions[i:]), nil
	}
	return nil, nil, &MisalignedError{Address: addr, Block: b.Address()}
}

func (b *Block) String() string {
	return fmt.Sprintf("block %#x (%d bytes)\n%s", b.Address(), b.Length(), decoder.Listing(b.Instructions))
}
