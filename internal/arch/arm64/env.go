package arm64

import (
	"strconv"

	"gbinsym/internal/expr"
)

var (
	pc   = expr.NewRegT("pc", 64, expr.RegPC)
	sp   = expr.NewRegT("sp", 64, expr.RegStack)
	cpsr = expr.NewRegT("cpsr", 32, expr.RegFlags)

	nf = cpsr.Alias(31, 1, "N")
	zf = cpsr.Alias(30, 1, "Z")
	cf = cpsr.Alias(29, 1, "C")
	vf = cpsr.Alias(28, 1, "V")

	// r0-r30，w为低32位
	r, w = func() ([]*expr.Reg, []*expr.Slc) {
		rs, ws := make([]*expr.Reg, 31), make([]*expr.Slc, 31)
		for i := range rs {
			rs[i] = expr.NewReg("r"+strconv.Itoa(i), 64)
			ws[i] = rs[i].Alias(0, 32, "w"+strconv.Itoa(i))
		}
		return rs, ws
	}()

	wsp = sp.Alias(0, 32, "wsp")
	lr  = r[30]

	// 零寄存器，读为0，写被忽略
	xzr = expr.NewReg("xzr", 64)
	wzr = xzr.Alias(0, 32, "wzr")
)

// Registers 所有寄存器
func Registers() []*expr.Reg {
	return append(append([]*expr.Reg{}, r...), sp, pc, cpsr)
}

// gpr 编码n对应的寄存器，n为31时按上下文是sp或零寄存器
func gpr(n int64, size uint, isSP bool) expr.Expr {
	if n == 31 {
		switch {
		case isSP && size == 32:
			return wsp
		case isSP:
			return sp
		case size == 32:
			return wzr
		}
		return xzr
	}
	if size == 32 {
		return w[n]
	}
	return r[n]
}
