package decoder

import (
	"github.com/pkg/errors"
)

// Disassembler 按注册顺序尝试各个格式
type Disassembler struct {
	specs []*Spec
}

func NewDisassembler(specs ...*Spec) *Disassembler {
	return &Disassembler{specs: specs}
}

// Add 注册格式
func (d *Disassembler) Add(specs ...*Spec) {
	d.specs = append(d.specs, specs...)
}

// Specs 已注册的格式
func (d *Disassembler) Specs() []*Spec {
	return d.specs
}

// Decode 解码data开头的一条指令
func (d *Disassembler) Decode(ctx *CpuContext, data []byte, address uint64) (*Instruction, error) {
	var (
		endian  = ctx.Endian
		lastErr error
	)
	for _, s := range d.specs {
		m, ok := s.Match(data, endian)
		if !ok {
			continue
		}
		ins := &Instruction{
			Address:  address,
			Mnemonic: s.Mnemonic(),
			Spec:     s,
			Misc:     make(map[string]interface{}),
		}
		if t, ok := s.Kwargs["type"].(Type); ok {
			ins.Type = t
		}
		if s.Handler != nil {
			if err := s.Handler(ctx, ins, m); err != nil {
				var ie *InstructionError
				if errors.As(err, &ie) {
					lastErr = errors.Wrapf(err, "%s at %#x", s.Mnemonic(), address)
					continue
				}
				return nil, errors.Wrapf(err, "decode %q at %#x", s.Format, address)
			}
		}
		ins.Length = m.Len
		ins.Bytes = make([]byte, m.Len)
		copy(ins.Bytes, data[:m.Len])
		return ins, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &DecodeError{Address: address, Data: data}
}
