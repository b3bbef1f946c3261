// Package cfg 基本块切分、线性扫描和前向探索构建控制流图
package cfg

import (
	"gbinsym/internal/decoder"
	"gbinsym/internal/memory"
)

// Program 被分析的程序
type Program interface {
	CPU() *decoder.CPU
	Entrypoints() []uint64
	Memory() *memory.Map
}

// fetch 解码addr处的一条指令
func fetch(p Program, addr uint64) (*decoder.Instruction, error) {
	cpu := p.CPU()
	data, err := p.Memory().Fetch(addr, cpu.MaxLength)
	if err != nil {
		return nil, err
	}
	return cpu.Disassemble(data, addr)
}

func entry(p Program, addrs []uint64) uint64 {
	if len(addrs) > 0 {
		return addrs[0]
	}
	if ep := p.Entrypoints(); len(ep) > 0 {
		return ep[0]
	}
	return 0
}
