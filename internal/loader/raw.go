// Package loader 把二进制映像装入内存映射
package loader

import (
	"os"

	"gbinsym/internal/arch"
	"gbinsym/internal/decoder"
	"gbinsym/internal/memory"

	"github.com/pkg/errors"
)

// Raw 没有格式的平坦映像，从base开始映射，入口为base
type Raw struct {
	cpu     *decoder.CPU
	mem     *memory.Map
	data    []byte
	base    uint64
	entries []uint64

	Symbols map[string]uint64
}

// NewRaw 用已有的数据创建程序
func NewRaw(cpu *decoder.CPU, data []byte, base uint64) *Raw {
	mem := memory.New()
	mem.Load(base, data)
	return &Raw{
		cpu:     cpu,
		mem:     mem,
		data:    data,
		base:    base,
		entries: []uint64{base},
		Symbols: make(map[string]uint64),
	}
}

// Load 读取文件，archName为注册过的架构名
func Load(path, archName string, base uint64) (*Raw, error) {
	cpu, err := arch.Lookup(archName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if len(data) == 0 {
		return nil, errors.Errorf("%s is empty", path)
	}
	return NewRaw(cpu, data, base), nil
}

func (r *Raw) CPU() *decoder.CPU {
	return r.cpu
}

func (r *Raw) Memory() *memory.Map {
	return r.mem
}

func (r *Raw) Entrypoints() []uint64 {
	return r.entries
}

// SetEntrypoints 替换入口
func (r *Raw) SetEntrypoints(addrs ...uint64) {
	r.entries = addrs
}

// Data 原始映像
func (r *Raw) Data() []byte {
	return r.data
}

func (r *Raw) Base() uint64 {
	return r.base
}
