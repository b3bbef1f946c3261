package x86

import (
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
)

var aluNames = [...]string{"add", "or", "adc", "sbb", "and", "sub", "xor", "cmp"}

type jcc struct {
	name string
	cond func(get func(expr.Expr) expr.Expr) expr.Expr
}

// 条件码，按cc编码顺序
var jccTable = [16]jcc{
	{"jo", func(g func(expr.Expr) expr.Expr) expr.Expr { return g(of) }},
	{"jno", func(g func(expr.Expr) expr.Expr) expr.Expr { return expr.Not(g(of)) }},
	{"jb", func(g func(expr.Expr) expr.Expr) expr.Expr { return g(cf) }},
	{"jnb", func(g func(expr.Expr) expr.Expr) expr.Expr { return expr.Not(g(cf)) }},
	{"jz", func(g func(expr.Expr) expr.Expr) expr.Expr { return g(zf) }},
	{"jnz", func(g func(expr.Expr) expr.Expr) expr.Expr { return expr.Not(g(zf)) }},
	{"jbe", func(g func(expr.Expr) expr.Expr) expr.Expr { return expr.Or(g(cf), g(zf)) }},
	{"ja", func(g func(expr.Expr) expr.Expr) expr.Expr { return expr.And(expr.Not(g(cf)), expr.Not(g(zf))) }},
	{"js", func(g func(expr.Expr) expr.Expr) expr.Expr { return g(sf) }},
	{"jns", func(g func(expr.Expr) expr.Expr) expr.Expr { return expr.Not(g(sf)) }},
	{"jp", func(g func(expr.Expr) expr.Expr) expr.Expr { return g(pf) }},
	{"jnp", func(g func(expr.Expr) expr.Expr) expr.Expr { return expr.Not(g(pf)) }},
	{"jl", func(g func(expr.Expr) expr.Expr) expr.Expr { return expr.Ne(g(sf), g(of)) }},
	{"jge", func(g func(expr.Expr) expr.Expr) expr.Expr { return expr.Eq(g(sf), g(of)) }},
	{"jle", func(g func(expr.Expr) expr.Expr) expr.Expr { return expr.Or(g(zf), expr.Ne(g(sf), g(of))) }},
	{"jg", func(g func(expr.Expr) expr.Expr) expr.Expr { return expr.And(expr.Not(g(zf)), expr.Eq(g(sf), g(of))) }},
}

func kw(mnemonic string, t decoder.Type) map[string]interface{} {
	return map[string]interface{}{"mnemonic": mnemonic, "type": t}
}

func reg(n int64, size uint) expr.Expr {
	switch size {
	case 8:
		return regs8[n]
	case 16:
		return regs16[n]
	}
	return regs32[n]
}

// rmOperand 解析ModR/M中的r/m操作数，必要时继续读取SIB和位移
func rmOperand(m *decoder.Match, size uint) (expr.Expr, error) {
	mod, rm := m.Get("mod"), m.Get("rm")
	if mod == 3 {
		return reg(rm, size), nil
	}
	var (
		base expr.Expr
		disp int64
	)
	switch {
	case rm == 4:
		b, err := m.Consume(1)
		if err != nil {
			return nil, err
		}
		scale, index, sb := b[0]>>6, (b[0]>>3)&7, b[0]&7
		if sb == 5 && mod == 0 {
			if disp, err = m.Imm(4, true); err != nil {
				return nil, err
			}
		} else {
			base = regs32[sb]
		}
		if index != 4 {
			ix := expr.Expr(regs32[index])
			if scale > 0 {
				ix = expr.Mul(ix, expr.Const(uint64(1)<<scale, 32))
			}
			if base == nil {
				base = ix
			} else {
				base = expr.Add(base, ix)
			}
		}
	case rm == 5 && mod == 0:
		d, err := m.Imm(4, true)
		if err != nil {
			return nil, err
		}
		disp = d
	default:
		base = regs32[rm]
	}
	switch mod {
	case 1, 2:
		n := 1
		if mod == 2 {
			n = 4
		}
		d, err := m.Imm(n, true)
		if err != nil {
			return nil, err
		}
		disp += d
	}
	if base == nil {
		return expr.NewMem(expr.Const(uint64(uint32(disp)), 32), size), nil
	}
	return expr.NewMemE(base, size, expr.LittleEndian, disp), nil
}

func hNone(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	return nil
}

func hImm16(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	v, err := m.Imm(2, false)
	if err != nil {
		return err
	}
	ins.Operands = []expr.Expr{expr.Const(uint64(v), 16)}
	return nil
}

// hRel 相对跳转，操作数为有符号偏移
func hRel(n int) decoder.Handler {
	return func(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
		v, err := m.Imm(n, true)
		if err != nil {
			return err
		}
		ins.Operands = []expr.Expr{expr.SConst(v, 32)}
		return nil
	}
}

func hJcc(n int) decoder.Handler {
	rel := hRel(n)
	return func(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
		j := jccTable[m.Get("cc")]
		ins.Mnemonic, ins.Cond = j.name, j.name[1:]
		return rel(ctx, ins, m)
	}
}

func hReg(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	ins.Operands = []expr.Expr{regs32[m.Get("rd")]}
	return nil
}

func hPushImm(n int) decoder.Handler {
	return func(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
		v, err := m.Imm(n, true)
		if err != nil {
			return err
		}
		ins.Operands = []expr.Expr{expr.SConst(v, 32)}
		return nil
	}
}

func hMovImm(size uint) decoder.Handler {
	return func(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
		v, err := m.Imm(int(size/8), false)
		if err != nil {
			return err
		}
		ins.Operands = []expr.Expr{reg(m.Get("rd"), size), expr.Const(uint64(v), size)}
		return nil
	}
}

// hRM 形如 op r/m32, r32；d=1时交换方向
func hRM(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	x, err := rmOperand(m, 32)
	if err != nil {
		return err
	}
	r := regs32[m.Get("reg")]
	if m.Get("d") == 1 {
		ins.Operands = []expr.Expr{r, x}
	} else {
		ins.Operands = []expr.Expr{x, r}
	}
	return nil
}

func hALU(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	ins.Mnemonic = aluNames[m.Get("op")]
	return hRM(ctx, ins, m)
}

func hLEA(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	if m.Get("mod") == 3 {
		return &decoder.InstructionError{Reason: "lea with register operand"}
	}
	x, err := rmOperand(m, 32)
	if err != nil {
		return err
	}
	ins.Operands = []expr.Expr{regs32[m.Get("reg")], x}
	return nil
}

func hRMImm(n int) decoder.Handler {
	return func(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
		x, err := rmOperand(m, 32)
		if err != nil {
			return err
		}
		v, err := m.Imm(n, true)
		if err != nil {
			return err
		}
		ins.Operands = []expr.Expr{x, expr.SConst(v, 32)}
		return nil
	}
}

// hGrp1 83 /n 和 81 /n，reg字段选择运算
func hGrp1(n int) decoder.Handler {
	imm := hRMImm(n)
	return func(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
		ins.Mnemonic = aluNames[m.Get("reg")]
		return imm(ctx, ins, m)
	}
}

// hGrp5 ff /n
func hGrp5(ctx *decoder.CpuContext, ins *decoder.Instruction, m *decoder.Match) error {
	switch m.Get("reg") {
	case 0:
		ins.Mnemonic = "inc"
	case 1:
		ins.Mnemonic = "dec"
	case 2:
		ins.Mnemonic, ins.Type = "call", decoder.TypeControlFlow
	case 4:
		ins.Mnemonic, ins.Type = "jmp", decoder.TypeControlFlow
	case 6:
		ins.Mnemonic = "push"
	default:
		return &decoder.InstructionError{Reason: "unsupported ff extension"}
	}
	x, err := rmOperand(m, 32)
	if err != nil {
		return err
	}
	ins.Operands = []expr.Expr{x}
	return nil
}

func newDisassembler() *decoder.Disassembler {
	dp, ct := decoder.TypeDataProcessing, decoder.TypeControlFlow
	return decoder.NewDisassembler(
		decoder.MustSpec("*<[ {90} ]", kw("nop", dp), hNone),
		decoder.MustSpec("*<[ {c9} ]", kw("leave", dp), hNone),
		decoder.MustSpec("*<[ {c3} ]", kw("ret", ct), hNone),
		decoder.MustSpec("*<[ {c2} ]", kw("ret", ct), hImm16),
		decoder.MustSpec("*<[ {e8} ]", kw("call", ct), hRel(4)),
		decoder.MustSpec("*<[ {e9} ]", kw("jmp", ct), hRel(4)),
		decoder.MustSpec("*<[ {eb} ]", kw("jmp", ct), hRel(1)),
		decoder.MustSpec("*<[ 0111 cc(4) ]", kw("", ct), hJcc(1)),
		decoder.MustSpec("*<[ {0f} 1000 cc(4) ]", kw("", ct), hJcc(4)),
		decoder.MustSpec("*<[ {f4} ]", kw("hlt", ct), hNone),
		decoder.MustSpec("*<[ {cc} ]", kw("int3", ct), hNone),
		decoder.MustSpec("*<[ 01010 rd(3) ]", kw("push", dp), hReg),
		decoder.MustSpec("*<[ 01011 rd(3) ]", kw("pop", dp), hReg),
		decoder.MustSpec("*<[ 01000 rd(3) ]", kw("inc", dp), hReg),
		decoder.MustSpec("*<[ 01001 rd(3) ]", kw("dec", dp), hReg),
		decoder.MustSpec("*<[ {6a} ]", kw("push", dp), hPushImm(1)),
		decoder.MustSpec("*<[ {68} ]", kw("push", dp), hPushImm(4)),
		decoder.MustSpec("*<[ 10111 rd(3) ]", kw("mov", dp), hMovImm(32)),
		decoder.MustSpec("*<[ 10110 rd(3) ]", kw("mov", dp), hMovImm(8)),
		decoder.MustSpec("*<[ 100010 d 1 /r ]", kw("mov", dp), hRM),
		decoder.MustSpec("*<[ {c7} /0 ]", kw("mov", dp), hRMImm(4)),
		decoder.MustSpec("*<[ {8d} /r ]", kw("lea", dp), hLEA),
		decoder.MustSpec("*<[ 00 op(3) 0 d 1 /r ]", kw("", dp), hALU),
		decoder.MustSpec("*<[ {85} /r ]", kw("test", dp), hRM),
		decoder.MustSpec("*<[ {83} /r ]", kw("", dp), hGrp1(1)),
		decoder.MustSpec("*<[ {81} /r ]", kw("", dp), hGrp1(4)),
		decoder.MustSpec("*<[ {ff} /r ]", kw("", dp), hGrp5),
	)
}
