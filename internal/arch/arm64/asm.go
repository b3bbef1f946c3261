package arm64

import (
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"
)

func get(m *mapper.Mapper, x expr.Expr) expr.Expr {
	if x == expr.Expr(xzr) || x == expr.Expr(wzr) {
		return expr.Const(0, x.Size())
	}
	return m.Read(x)
}

// set 写w寄存器时高32位清零
func set(m *mapper.Mapper, loc, v expr.Expr) {
	switch l := loc.(type) {
	case *expr.Reg:
		if l == xzr {
			return
		}
	case *expr.Slc:
		if l == wzr {
			return
		}
		if p, ok := l.X.(*expr.Reg); ok && l.Pos == 0 {
			m.MustSet(p, expr.Zext(v, p.Size()))
			return
		}
	}
	m.MustSet(loc, v)
}

func advance(m *mapper.Mapper) {
	m.MustSet(pc, expr.AddN(m.Read(pc), 4))
}

func next(ins *decoder.Instruction) expr.Expr {
	return expr.Const(ins.Next(), 64)
}

func iNOP(ins *decoder.Instruction, m *mapper.Mapper) error {
	advance(m)
	return nil
}

func iADR(ins *decoder.Instruction, m *mapper.Mapper) error {
	set(m, ins.Operands[0], ins.Operands[1])
	advance(m)
	return nil
}

func nzcv(m *mapper.Mapper, a, b, res expr.Expr, sub bool) {
	n := res.Size() - 1
	m.MustSet(nf, expr.Bit(res, n))
	m.MustSet(zf, expr.Eq(res, expr.Const(0, res.Size())))
	if sub {
		m.MustSet(cf, expr.Ge(a, b))
		m.MustSet(vf, expr.Bit(expr.And(expr.Xor(a, b), expr.Xor(a, res)), n))
	} else {
		m.MustSet(cf, expr.Lt(res, a))
		m.MustSet(vf, expr.Bit(expr.And(expr.Not(expr.Xor(a, b)), expr.Xor(a, res)), n))
	}
}

func addsub(ins *decoder.Instruction, m *mapper.Mapper) error {
	a := expr.AsUnsigned(get(m, ins.Operands[1]))
	b := ins.Operands[2]
	sub := ins.Mnemonic[:3] == "sub"
	var res expr.Expr
	if sub {
		res = expr.Sub(a, b)
	} else {
		res = expr.Add(a, b)
	}
	if ins.Mnemonic[len(ins.Mnemonic)-1] == 's' {
		nzcv(m, a, b, res, sub)
	}
	set(m, ins.Operands[0], res)
	advance(m)
	return nil
}

func iMOV(ins *decoder.Instruction, m *mapper.Mapper) error {
	dst := ins.Operands[0]
	imm := ins.Operands[1].(*expr.Cst)
	shift := uint(ins.Operands[2].(*expr.Cst).Uint64())
	size := dst.Size()
	var v expr.Expr
	switch ins.Mnemonic {
	case "movz":
		v = expr.Const(imm.Uint64()<<shift, size)
	case "movn":
		v = expr.Not(expr.Const(imm.Uint64()<<shift, size))
	case "movk":
		v = expr.Overlay(get(m, dst), shift, imm)
	}
	set(m, dst, v)
	advance(m)
	return nil
}

func iB(ins *decoder.Instruction, m *mapper.Mapper) error {
	m.MustSet(pc, ins.Operands[0])
	return nil
}

func iBL(ins *decoder.Instruction, m *mapper.Mapper) error {
	m.MustSet(lr, next(ins))
	m.MustSet(pc, ins.Operands[0])
	return nil
}

func cond(name string, m *mapper.Mapper) expr.Expr {
	n, z, c, v := m.Read(nf), m.Read(zf), m.Read(cf), m.Read(vf)
	switch name {
	case "eq":
		return z
	case "ne":
		return expr.Not(z)
	case "cs":
		return c
	case "cc":
		return expr.Not(c)
	case "mi":
		return n
	case "pl":
		return expr.Not(n)
	case "vs":
		return v
	case "vc":
		return expr.Not(v)
	case "hi":
		return expr.And(c, expr.Not(z))
	case "ls":
		return expr.Or(expr.Not(c), z)
	case "ge":
		return expr.Eq(n, v)
	case "lt":
		return expr.Ne(n, v)
	case "gt":
		return expr.And(expr.Not(z), expr.Eq(n, v))
	case "le":
		return expr.Or(z, expr.Ne(n, v))
	}
	return expr.Bool(true)
}

func iBcond(ins *decoder.Instruction, m *mapper.Mapper) error {
	m.MustSet(pc, expr.Ite(cond(ins.Cond, m), ins.Operands[0], next(ins)))
	return nil
}

func iCB(ins *decoder.Instruction, m *mapper.Mapper) error {
	x := get(m, ins.Operands[0])
	c := expr.Eq(x, expr.Const(0, x.Size()))
	if ins.Mnemonic == "cbnz" {
		c = expr.Not(c)
	}
	m.MustSet(pc, expr.Ite(c, ins.Operands[1], next(ins)))
	return nil
}

func iBR(ins *decoder.Instruction, m *mapper.Mapper) error {
	m.MustSet(pc, get(m, ins.Operands[0]))
	return nil
}

func iBLR(ins *decoder.Instruction, m *mapper.Mapper) error {
	t := get(m, ins.Operands[0])
	m.MustSet(lr, next(ins))
	m.MustSet(pc, t)
	return nil
}

func semantics() map[string]decoder.Semantic {
	s := map[string]decoder.Semantic{
		"nop":  iNOP,
		"adr":  iADR,
		"adrp": iADR,
		"add":  addsub,
		"adds": addsub,
		"sub":  addsub,
		"subs": addsub,
		"movz": iMOV,
		"movn": iMOV,
		"movk": iMOV,
		"b":    iB,
		"bl":   iBL,
		"cbz":  iCB,
		"cbnz": iCB,
		"ret":  iBR,
		"br":   iBR,
		"blr":  iBLR,
	}
	for _, c := range condNames {
		s["b."+c] = iBcond
	}
	return s
}
