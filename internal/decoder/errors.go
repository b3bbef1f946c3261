package decoder

import "fmt"

// DecodeError 没有任何格式能解码
type DecodeError struct {
	Address uint64
	Data    []byte
}

func (e *DecodeError) Error() string {
	n := len(e.Data)
	if n > 8 {
		n = 8
	}
	return fmt.Sprintf("cannot decode at %#x: % x", e.Address, e.Data[:n])
}

// InstructionError 处理函数拒绝了匹配
type InstructionError struct {
	Reason string
}

func (e *InstructionError) Error() string {
	return "invalid instruction: " + e.Reason
}

// NoSemanticsError 助记符没有语义函数
type NoSemanticsError struct {
	Mnemonic string
	Address  uint64
}

func (e *NoSemanticsError) Error() string {
	return fmt.Sprintf("no semantics for %s at %#x", e.Mnemonic, e.Address)
}
