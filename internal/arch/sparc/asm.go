package sparc

import (
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"
)

// get 读取寄存器，g0恒为0
func get(m *mapper.Mapper, x expr.Expr) expr.Expr {
	switch v := x.(type) {
	case *expr.Reg:
		if v == g0 {
			return expr.Const(0, 32)
		}
	case *expr.Cst:
		return expr.Sext(v, 32)
	}
	return m.Read(x)
}

// set 写寄存器，写g0被忽略
func set(m *mapper.Mapper, loc, v expr.Expr) {
	if loc == expr.Expr(g0) {
		return
	}
	m.MustSet(loc, v)
}

func advance(m *mapper.Mapper) {
	m.MustSet(pc, expr.AddN(m.Read(pc), 4))
}

func target(ins *decoder.Instruction) expr.Expr {
	d := ins.Operands[0].(*expr.Cst).Int64()
	return expr.Const(uint64(int64(ins.Address)+d), 32)
}

func iNOP(ins *decoder.Instruction, m *mapper.Mapper) error {
	advance(m)
	return nil
}

func iSETHI(ins *decoder.Instruction, m *mapper.Mapper) error {
	set(m, ins.Operands[1], ins.Operands[0])
	advance(m)
	return nil
}

func iCALL(ins *decoder.Instruction, m *mapper.Mapper) error {
	m.MustSet(o7, expr.Const(ins.Address, 32))
	m.MustSet(pc, target(ins))
	return nil
}

func cond(name string, m *mapper.Mapper) expr.Expr {
	n, z, v, c := m.Read(nf), m.Read(zf), m.Read(vf), m.Read(cf)
	switch name {
	case "a":
		return expr.Bool(true)
	case "n":
		return expr.Bool(false)
	case "e":
		return z
	case "ne":
		return expr.Not(z)
	case "g":
		return expr.Not(expr.Or(z, expr.Xor(n, v)))
	case "le":
		return expr.Or(z, expr.Xor(n, v))
	case "ge":
		return expr.Not(expr.Xor(n, v))
	case "l":
		return expr.Xor(n, v)
	case "gu":
		return expr.Not(expr.Or(c, z))
	case "leu":
		return expr.Or(c, z)
	case "cc":
		return expr.Not(c)
	case "cs":
		return c
	case "pos":
		return expr.Not(n)
	case "neg":
		return n
	case "vc":
		return expr.Not(v)
	}
	return v
}

// iBicc 延迟槽已在块中先行执行，未跳转时落到分支后第二条指令
func iBicc(ins *decoder.Instruction, m *mapper.Mapper) error {
	fall := expr.Const(ins.Address+8, 32)
	m.MustSet(pc, expr.Ite(cond(ins.Cond, m), target(ins), fall))
	return nil
}

func iJMPL(ins *decoder.Instruction, m *mapper.Mapper) error {
	t := expr.Add(get(m, ins.Operands[0]), get(m, ins.Operands[1]))
	set(m, ins.Operands[2], expr.Const(ins.Address, 32))
	m.MustSet(pc, t)
	return nil
}

func icc(m *mapper.Mapper, r expr.Expr) {
	m.MustSet(nf, expr.Bit(r, 31))
	m.MustSet(zf, expr.Eq(r, expr.Const(0, 32)))
}

func alu(name string) decoder.Semantic {
	return func(ins *decoder.Instruction, m *mapper.Mapper) error {
		a := expr.AsUnsigned(get(m, ins.Operands[0]))
		b := expr.AsUnsigned(get(m, ins.Operands[1]))
		var res expr.Expr
		switch name {
		case "add", "addcc":
			res = expr.Add(a, b)
		case "sub", "subcc":
			res = expr.Sub(a, b)
		case "and", "andcc":
			res = expr.And(a, b)
		case "or", "orcc":
			res = expr.Or(a, b)
		case "xor", "xorcc":
			res = expr.Xor(a, b)
		case "sll":
			res = expr.Shl(a, expr.And(b, expr.Const(31, 32)))
		case "srl":
			res = expr.Shr(a, expr.And(b, expr.Const(31, 32)))
		case "sra":
			res = expr.Sar(a, expr.And(b, expr.Const(31, 32)))
		}
		switch name {
		case "addcc":
			icc(m, res)
			m.MustSet(vf, expr.Bit(expr.And(expr.Not(expr.Xor(a, b)), expr.Xor(a, res)), 31))
			m.MustSet(cf, expr.Lt(res, a))
		case "subcc":
			icc(m, res)
			m.MustSet(vf, expr.Bit(expr.And(expr.Xor(a, b), expr.Xor(a, res)), 31))
			m.MustSet(cf, expr.Lt(a, b))
		case "andcc", "orcc", "xorcc":
			icc(m, res)
			m.MustSet(vf, expr.Bool(false))
			m.MustSet(cf, expr.Bool(false))
		}
		set(m, ins.Operands[2], res)
		advance(m)
		return nil
	}
}

// iSAVE 新窗口：旧的l/i寄存器溢出到旧sp处的保存区，o寄存器成为新的i寄存器
func iSAVE(ins *decoder.Instruction, m *mapper.Mapper) error {
	v := expr.Add(get(m, ins.Operands[0]), get(m, ins.Operands[1]))
	spill := append(append([]*expr.Reg{}, localRegs()...), inRegs()...)
	for k, x := range spill {
		m.MustSet(expr.NewMemE(sp, 32, expr.BigEndian, int64(4*k)), m.Read(x))
	}
	outs := make([]expr.Expr, 8)
	for k, x := range outRegs() {
		outs[k] = m.Read(x)
	}
	for k, x := range inRegs() {
		m.MustSet(x, outs[k])
	}
	for _, x := range append(append([]*expr.Reg{}, localRegs()...), outRegs()...) {
		m.MustSet(x, expr.NewTop(32))
	}
	set(m, ins.Operands[2], v)
	advance(m)
	return nil
}

// iRESTORE 回到上一个窗口：i寄存器成为o寄存器，l/i从fp处的保存区读回
func iRESTORE(ins *decoder.Instruction, m *mapper.Mapper) error {
	v := expr.Add(get(m, ins.Operands[0]), get(m, ins.Operands[1]))
	spill := append(append([]*expr.Reg{}, localRegs()...), inRegs()...)
	saved := make([]expr.Expr, len(spill))
	for k := range spill {
		saved[k] = m.Read(expr.NewMemE(fp, 32, expr.BigEndian, int64(4*k)))
	}
	for k, x := range inRegs() {
		m.MustSet(outRegs()[k], m.Read(x))
	}
	for k, x := range spill {
		m.MustSet(x, saved[k])
	}
	set(m, ins.Operands[2], v)
	advance(m)
	return nil
}

func iLD(ins *decoder.Instruction, m *mapper.Mapper) error {
	x := ins.Operands[0]
	set(m, ins.Operands[1], expr.Zext(m.Read(x), 32))
	advance(m)
	return nil
}

func iST(ins *decoder.Instruction, m *mapper.Mapper) error {
	x := ins.Operands[0]
	m.MustSet(x, expr.Zext(get(m, ins.Operands[1]), x.Size()))
	advance(m)
	return nil
}

func semantics() map[string]decoder.Semantic {
	s := map[string]decoder.Semantic{
		"nop":     iNOP,
		"sethi":   iSETHI,
		"call":    iCALL,
		"jmpl":    iJMPL,
		"ret":     iJMPL,
		"retl":    iJMPL,
		"save":    iSAVE,
		"restore": iRESTORE,
		"ld":      iLD,
		"ldub":    iLD,
		"lduh":    iLD,
		"st":      iST,
		"stb":     iST,
		"sth":     iST,
	}
	for _, n := range []string{"add", "addcc", "sub", "subcc", "and", "andcc", "or", "orcc", "xor", "xorcc", "sll", "srl", "sra"} {
		s[n] = alu(n)
	}
	for _, b := range bicc {
		s[b] = iBicc
	}
	return s
}
