package sparc

import (
	"fmt"

	"gbinsym/internal/expr"
)

var (
	pc  = expr.NewRegT("pc", 32, expr.RegPC)
	psr = expr.NewRegT("psr", 32, expr.RegFlags)

	// 整数条件码 icc
	nf = psr.Alias(23, 1, "n")
	zf = psr.Alias(22, 1, "z")
	vf = psr.Alias(21, 1, "v")
	cf = psr.Alias(20, 1, "c")

	// r[0..31]：g0-g7 o0-o7 l0-l7 i0-i7，o6和i6即sp和fp
	r = func() []*expr.Reg {
		regs := make([]*expr.Reg, 32)
		for i := range regs {
			name := fmt.Sprintf("%c%d", "goli"[i/8], i%8)
			typ := expr.RegOther
			switch i {
			case 14:
				name, typ = "sp", expr.RegStack
			case 30:
				name = "fp"
			}
			regs[i] = expr.NewRegT(name, 32, typ)
		}
		return regs
	}()

	g0, o7 = r[0], r[15]
	sp, fp = r[14], r[30]
	i7     = r[31]
)

func outRegs() []*expr.Reg   { return r[8:16] }
func localRegs() []*expr.Reg { return r[16:24] }
func inRegs() []*expr.Reg    { return r[24:32] }

// Registers 所有寄存器
func Registers() []*expr.Reg {
	return append(append([]*expr.Reg{}, r...), pc, psr)
}
