package x86

import "gbinsym/internal/expr"

// 32位通用寄存器，按编码顺序
var (
	eax = expr.NewReg("eax", 32)
	ecx = expr.NewReg("ecx", 32)
	edx = expr.NewReg("edx", 32)
	ebx = expr.NewReg("ebx", 32)
	esp = expr.NewRegT("esp", 32, expr.RegStack)
	ebp = expr.NewReg("ebp", 32)
	esi = expr.NewReg("esi", 32)
	edi = expr.NewReg("edi", 32)

	eip    = expr.NewRegT("eip", 32, expr.RegPC)
	eflags = expr.NewRegT("eflags", 32, expr.RegFlags)

	regs32 = []*expr.Reg{eax, ecx, edx, ebx, esp, ebp, esi, edi}
)

// 标志位
var (
	cf = eflags.Alias(0, 1, "cf")
	pf = eflags.Alias(2, 1, "pf")
	af = eflags.Alias(4, 1, "af")
	zf = eflags.Alias(6, 1, "zf")
	sf = eflags.Alias(7, 1, "sf")
	df = eflags.Alias(10, 1, "df")
	of = eflags.Alias(11, 1, "of")
)

// 8位和16位子寄存器
var (
	al = eax.Alias(0, 8, "al")
	cl = ecx.Alias(0, 8, "cl")
	dl = edx.Alias(0, 8, "dl")
	bl = ebx.Alias(0, 8, "bl")
	ah = eax.Alias(8, 8, "ah")
	ch = ecx.Alias(8, 8, "ch")
	dh = edx.Alias(8, 8, "dh")
	bh = ebx.Alias(8, 8, "bh")

	ax = eax.Alias(0, 16, "ax")
	cx = ecx.Alias(0, 16, "cx")
	dx = edx.Alias(0, 16, "dx")
	bx = ebx.Alias(0, 16, "bx")
	sp = esp.Alias(0, 16, "sp")
	bp = ebp.Alias(0, 16, "bp")
	si = esi.Alias(0, 16, "si")
	di = edi.Alias(0, 16, "di")

	regs8  = []*expr.Slc{al, cl, dl, bl, ah, ch, dh, bh}
	regs16 = []*expr.Slc{ax, cx, dx, bx, sp, bp, si, di}
)

// Registers 所有寄存器
func Registers() []*expr.Reg {
	return append(append([]*expr.Reg{}, regs32...), eip, eflags)
}

// Flag 按名字取标志位
func Flag(name string) (*expr.Slc, bool) {
	for _, f := range []*expr.Slc{cf, pf, af, zf, sf, df, of} {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// SubRegister 按名字取子寄存器
func SubRegister(name string) (*expr.Slc, bool) {
	for _, s := range append(append([]*expr.Slc{}, regs8...), regs16...) {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}
