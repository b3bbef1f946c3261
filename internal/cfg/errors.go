package cfg

import (
	"fmt"

	"gbinsym/internal/expr"
)

// TopReachedError 跳转目标不是常量
type TopReachedError struct {
	Address uint64
	Target  expr.Expr
}

func (e *TopReachedError) Error() string {
	return fmt.Sprintf("branch target %s at %#x is not constant", e.Target, e.Address)
}

// MisalignedError 地址落在已有块的指令中间
type MisalignedError struct {
	Address uint64
	Block   uint64
}

func (e *MisalignedError) Error() string {
	return fmt.Sprintf("address %#x is not an instruction boundary of block %#x", e.Address, e.Block)
}
