package expr

import "fmt"

// Error 表达式代数内部的错误，语义函数以panic的形式抛出，在执行边界恢复
type Error interface {
	error
	exprError()
}

// SizeMismatchError 位宽不匹配
type SizeMismatchError struct {
	Op    string
	Left  uint
	Right uint
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch in %s: %d != %d", e.Op, e.Left, e.Right)
}

func (*SizeMismatchError) exprError() {}

// InvalidSliceError 切片越界
type InvalidSliceError struct {
	Pos   uint
	Width uint
	Size  uint
}

func (e *InvalidSliceError) Error() string {
	return fmt.Sprintf("invalid slice [%d:%d] of %d-bit expression", e.Pos, e.Pos+e.Width, e.Size)
}

func (*InvalidSliceError) exprError() {}

// UndefinedError 对无法求值的表达式求值，例如无环境的寄存器读取
type UndefinedError struct {
	What string
}

func (e *UndefinedError) Error() string {
	return "undefined: " + e.What
}

func (*UndefinedError) exprError() {}

// Recover 把表达式代数的panic转为error，其他panic继续抛出
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(Error); ok {
		*err = e
		return
	}
	panic(r)
}
