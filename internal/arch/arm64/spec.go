package arm64

import (
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
)

var condNames = [16]string{"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc", "hi", "ls", "ge", "lt", "gt", "le", "al", "nv"}

func kw(mnemonic string, t decoder.Type) map[string]interface{} {
	return map[string]interface{}{"mnemonic": mnemonic, "type": t}
}

func width(m *decoder.Match) uint {
	if m.Get("sf") == 1 {
		return 64
	}
	return 32
}

// hADR 操作数为目标寄存器和按指令地址计算好的绝对地址
func hADR(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	imm := m.Get("immhi")<<2 | m.Get("immlo")
	if imm&(1<<20) != 0 {
		imm -= 1 << 21
	}
	a := int64(ins.Address) + imm
	if ins.Mnemonic == "adrp" {
		a = int64(ins.Address)&^0xfff + imm<<12
	}
	ins.Operands = []expr.Expr{r[m.Get("Rd")], expr.Const(uint64(a), 64)}
	return nil
}

func hAddSub(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	size, s := width(m), m.Get("S") == 1
	names := [2]string{"add", "sub"}
	ins.Mnemonic = names[m.Get("op")]
	if s {
		ins.Mnemonic += "s"
	}
	imm := uint64(m.Get("imm12"))
	if m.Get("sh") == 1 {
		imm <<= 12
	}
	rd := gpr(m.Get("Rd"), size, !s)
	ins.Operands = []expr.Expr{rd, gpr(m.Get("Rn"), size, true), expr.Const(imm, size)}
	return nil
}

func hMovWide(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	names := map[int64]string{0: "movn", 2: "movz", 3: "movk"}
	name, ok := names[m.Get("opc")]
	if !ok {
		return &decoder.InstructionError{Reason: "unallocated move wide"}
	}
	size := width(m)
	hw := m.Get("hw")
	if size == 32 && hw > 1 {
		return &decoder.InstructionError{Reason: "hw out of range"}
	}
	ins.Mnemonic = name
	ins.Operands = []expr.Expr{gpr(m.Get("Rd"), size, false), expr.Const(uint64(m.Get("imm16")), 16), expr.Const(uint64(16*hw), 8)}
	return nil
}

// branch 目标为绝对地址
func branch(ins *decoder.Instruction, off int64) expr.Expr {
	return expr.Const(uint64(int64(ins.Address)+off*4), 64)
}

func hB(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	ins.Operands = []expr.Expr{branch(ins, m.Get("imm26"))}
	return nil
}

func hBcond(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	ins.Cond = condNames[m.Get("cond")]
	ins.Mnemonic = "b." + ins.Cond
	ins.Operands = []expr.Expr{branch(ins, m.Get("imm19"))}
	return nil
}

func hCB(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	ins.Mnemonic = [2]string{"cbz", "cbnz"}[m.Get("op")]
	ins.Operands = []expr.Expr{gpr(m.Get("Rt"), width(m), false), branch(ins, m.Get("imm19"))}
	return nil
}

func hBranchReg(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	ins.Operands = []expr.Expr{gpr(m.Get("Rn"), 64, false)}
	return nil
}

func hNone(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	return nil
}

func newDisassembler() *decoder.Disassembler {
	dp, ct := decoder.TypeDataProcessing, decoder.TypeControlFlow
	return decoder.NewDisassembler(
		decoder.MustSpec("32<[ 11010101000000110010000000011111 ]", kw("nop", dp), hNone),
		decoder.MustSpec("32<[ 0 immlo(2) 10000 immhi(19) Rd(5) ]", kw("adr", dp), hADR),
		decoder.MustSpec("32<[ 1 immlo(2) 10000 immhi(19) Rd(5) ]", kw("adrp", dp), hADR),
		decoder.MustSpec("32<[ sf op S 100010 sh imm12(12) Rn(5) Rd(5) ]", kw("", dp), hAddSub),
		decoder.MustSpec("32<[ sf opc(2) 100101 hw(2) imm16(16) Rd(5) ]", kw("", dp), hMovWide),
		decoder.MustSpec("32<[ 000101 ~imm26(26) ]", kw("b", ct), hB),
		decoder.MustSpec("32<[ 100101 ~imm26(26) ]", kw("bl", ct), hB),
		decoder.MustSpec("32<[ 01010100 ~imm19(19) 0 cond(4) ]", kw("", ct), hBcond),
		decoder.MustSpec("32<[ sf 011010 op ~imm19(19) Rt(5) ]", kw("", ct), hCB),
		decoder.MustSpec("32<[ 1101011 0010 11111 000000 Rn(5) 00000 ]", kw("ret", ct), hBranchReg),
		decoder.MustSpec("32<[ 1101011 0000 11111 000000 Rn(5) 00000 ]", kw("br", ct), hBranchReg),
		decoder.MustSpec("32<[ 1101011 0001 11111 000000 Rn(5) 00000 ]", kw("blr", ct), hBranchReg),
	)
}
