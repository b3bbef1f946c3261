package sparc

import (
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
)

var bicc = [16]string{
	"bn", "be", "ble", "bl", "bleu", "bcs", "bneg", "bvs",
	"ba", "bne", "bg", "bge", "bgu", "bcc", "bpos", "bvc",
}

// 格式3，op=10
var arith = map[int64]string{
	0x00: "add", 0x01: "and", 0x02: "or", 0x03: "xor", 0x04: "sub",
	0x10: "addcc", 0x11: "andcc", 0x12: "orcc", 0x13: "xorcc", 0x14: "subcc",
	0x25: "sll", 0x26: "srl", 0x27: "sra",
	0x38: "jmpl", 0x3c: "save", 0x3d: "restore",
}

// 格式3，op=11
var mem = map[int64]string{
	0x00: "ld", 0x01: "ldub", 0x02: "lduh",
	0x04: "st", 0x05: "stb", 0x06: "sth",
}

func kw(mnemonic string, t decoder.Type) map[string]interface{} {
	return map[string]interface{}{"mnemonic": mnemonic, "type": t}
}

func hCall(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	ins.Operands = []expr.Expr{expr.SConst(m.Get("disp30")*4, 32)}
	ins.Misc[decoder.MiscDelayed] = true
	return nil
}

func hSethi(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	rd, imm := m.Get("rd"), m.Get("imm22")
	if rd == 0 && imm == 0 {
		ins.Mnemonic = "nop"
		return nil
	}
	ins.Operands = []expr.Expr{expr.Const(uint64(imm)<<10, 32), r[rd]}
	return nil
}

func hBicc(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	ins.Mnemonic = bicc[m.Get("cond")]
	ins.Cond = ins.Mnemonic[1:]
	ins.Operands = []expr.Expr{expr.SConst(m.Get("disp22")*4, 32)}
	ins.Misc[decoder.MiscDelayed] = true
	ins.Misc[decoder.MiscAnnul] = m.Get("a") == 1
	return nil
}

// op2 第二个源操作数：寄存器或13位有符号立即数
func op2(m *decoder.Match) expr.Expr {
	if m.Get("i") == 1 {
		return expr.SConst(m.Get("simm13"), 13)
	}
	return r[m.Get("rs2")]
}

func hArith(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	name, ok := arith[m.Get("op3")]
	if !ok {
		return &decoder.InstructionError{Reason: "unsupported op3"}
	}
	ins.Mnemonic = name
	rs1, rd := r[m.Get("rs1")], r[m.Get("rd")]
	ins.Operands = []expr.Expr{rs1, op2(m), rd}
	if name == "jmpl" {
		ins.Type = decoder.TypeControlFlow
		ins.Misc[decoder.MiscDelayed] = true
		if c, ok := ins.Operands[1].(*expr.Cst); ok && c.Int64() == 8 && rd == g0 {
			switch rs1 {
			case i7:
				ins.Mnemonic = "ret"
			case o7:
				ins.Mnemonic = "retl"
			}
		}
	}
	return nil
}

func hMem(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	name, ok := mem[m.Get("op3")]
	if !ok {
		return &decoder.InstructionError{Reason: "unsupported load/store"}
	}
	ins.Mnemonic = name
	size := uint(32)
	switch name[len(name)-1] {
	case 'b':
		size = 8
	case 'h':
		size = 16
	}
	a := expr.Expr(r[m.Get("rs1")])
	if m.Get("rs1") == 0 {
		a = expr.Const(0, 32)
	}
	x := op2(m)
	if x == g0 {
		x = expr.SConst(0, 13)
	}
	if c, ok := x.(*expr.Cst); ok {
		a = expr.NewMemE(a, size, expr.BigEndian, c.Int64())
	} else {
		a = expr.NewMemE(expr.Add(a, x), size, expr.BigEndian, 0)
	}
	ins.Operands = []expr.Expr{a, r[m.Get("rd")]}
	return nil
}

func newDisassembler() *decoder.Disassembler {
	dp, ct := decoder.TypeDataProcessing, decoder.TypeControlFlow
	return decoder.NewDisassembler(
		decoder.MustSpec("32>[ 01 ~disp30(30) ]", kw("call", ct), hCall),
		decoder.MustSpec("32>[ 00 rd(5) 100 imm22(22) ]", kw("sethi", dp), hSethi),
		decoder.MustSpec("32>[ 00 a cond(4) 010 ~disp22(22) ]", kw("", ct), hBicc),
		decoder.MustSpec("32>[ 10 rd(5) op3(6) rs1(5) i=1 ~simm13(13) ]", kw("", dp), hArith),
		decoder.MustSpec("32>[ 10 rd(5) op3(6) rs1(5) i=0 -------- rs2(5) ]", kw("", dp), hArith),
		decoder.MustSpec("32>[ 11 rd(5) op3(6) rs1(5) i=1 ~simm13(13) ]", kw("", dp), hMem),
		decoder.MustSpec("32>[ 11 rd(5) op3(6) rs1(5) i=0 -------- rs2(5) ]", kw("", dp), hMem),
	)
}
