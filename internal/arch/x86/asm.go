package x86

import (
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"
)

// 语义函数中的位置用指令执行前的寄存器表示，由mapper在当前状态下求值

func next(ins *decoder.Instruction, m *mapper.Mapper) expr.Expr {
	return expr.AddN(m.Read(eip), int64(ins.Length))
}

func push(m *mapper.Mapper, v expr.Expr) {
	m.MustSet(expr.NewMem(expr.AddN(esp, -4), 32), v)
	m.MustSet(esp, expr.AddN(m.Read(esp), -4))
}

func pop(m *mapper.Mapper) expr.Expr {
	v := m.Read(expr.NewMem(esp, 32))
	m.MustSet(esp, expr.AddN(m.Read(esp), 4))
	return v
}

// parity 低8位中1的个数为偶数时为1
func parity(r expr.Expr) expr.Expr {
	p := expr.Bit(r, 0)
	for i := uint(1); i < 8; i++ {
		p = expr.Xor(p, expr.Bit(r, i))
	}
	return expr.Not(p)
}

func msb(x expr.Expr) expr.Expr {
	return expr.Bit(x, x.Size()-1)
}

func flagsResult(m *mapper.Mapper, r expr.Expr) {
	m.MustSet(zf, expr.Eq(r, expr.Const(0, r.Size())))
	m.MustSet(sf, msb(r))
	m.MustSet(pf, parity(r))
}

func flagsAdd(m *mapper.Mapper, a, b, r expr.Expr, carry bool) {
	a, b, r = expr.AsUnsigned(a), expr.AsUnsigned(b), expr.AsUnsigned(r)
	if carry {
		m.MustSet(cf, expr.Lt(r, a))
	}
	m.MustSet(of, msb(expr.And(expr.Not(expr.Xor(a, b)), expr.Xor(a, r))))
	m.MustSet(af, expr.Bit(expr.Xor(expr.Xor(a, b), r), 4))
	flagsResult(m, r)
}

func flagsSub(m *mapper.Mapper, a, b, r expr.Expr, carry bool) {
	a, b, r = expr.AsUnsigned(a), expr.AsUnsigned(b), expr.AsUnsigned(r)
	if carry {
		m.MustSet(cf, expr.Lt(a, b))
	}
	m.MustSet(of, msb(expr.And(expr.Xor(a, b), expr.Xor(a, r))))
	m.MustSet(af, expr.Bit(expr.Xor(expr.Xor(a, b), r), 4))
	flagsResult(m, r)
}

func flagsLogic(m *mapper.Mapper, r expr.Expr) {
	m.MustSet(cf, expr.Bool(false))
	m.MustSet(of, expr.Bool(false))
	flagsResult(m, r)
}

func iNOP(ins *decoder.Instruction, m *mapper.Mapper) error {
	m.MustSet(eip, next(ins, m))
	return nil
}

func iLEAVE(ins *decoder.Instruction, m *mapper.Mapper) error {
	nxt := next(ins, m)
	m.MustSet(esp, m.Read(ebp))
	m.MustSet(ebp, m.Read(expr.NewMem(esp, 32)))
	m.MustSet(esp, expr.AddN(m.Read(esp), 4))
	m.MustSet(eip, nxt)
	return nil
}

func iRET(ins *decoder.Instruction, m *mapper.Mapper) error {
	v := pop(m)
	if len(ins.Operands) == 1 {
		m.MustSet(esp, expr.Add(m.Read(esp), expr.Zext(ins.Operands[0], 32)))
	}
	m.MustSet(eip, v)
	return nil
}

// target 相对偏移或间接操作数
func target(ins *decoder.Instruction, m *mapper.Mapper, nxt expr.Expr) expr.Expr {
	if c, ok := ins.Operands[0].(*expr.Cst); ok {
		return expr.Add(nxt, c)
	}
	return m.Read(ins.Operands[0])
}

func iCALL(ins *decoder.Instruction, m *mapper.Mapper) error {
	nxt := next(ins, m)
	t := target(ins, m, nxt)
	push(m, nxt)
	m.MustSet(eip, t)
	return nil
}

func iJMP(ins *decoder.Instruction, m *mapper.Mapper) error {
	m.MustSet(eip, target(ins, m, next(ins, m)))
	return nil
}

func iJcc(ins *decoder.Instruction, m *mapper.Mapper) error {
	var cond expr.Expr
	for _, j := range jccTable {
		if j.name == ins.Mnemonic {
			cond = j.cond(m.Read)
		}
	}
	nxt := next(ins, m)
	m.MustSet(eip, expr.Ite(cond, target(ins, m, nxt), nxt))
	return nil
}

func iHLT(ins *decoder.Instruction, m *mapper.Mapper) error {
	return iNOP(ins, m)
}

func iINT3(ins *decoder.Instruction, m *mapper.Mapper) error {
	m.MustSet(eip, expr.NewExt("int3", 32))
	return nil
}

func iPUSH(ins *decoder.Instruction, m *mapper.Mapper) error {
	push(m, m.Read(ins.Operands[0]))
	m.MustSet(eip, next(ins, m))
	return nil
}

func iPOP(ins *decoder.Instruction, m *mapper.Mapper) error {
	nxt := next(ins, m)
	m.MustSet(ins.Operands[0], pop(m))
	m.MustSet(eip, nxt)
	return nil
}

func iMOV(ins *decoder.Instruction, m *mapper.Mapper) error {
	m.MustSet(ins.Operands[0], m.Read(ins.Operands[1]))
	m.MustSet(eip, next(ins, m))
	return nil
}

func iLEA(ins *decoder.Instruction, m *mapper.Mapper) error {
	x := ins.Operands[1].(*expr.Mem)
	m.MustSet(ins.Operands[0], m.MustEval(x.A.Addr()))
	m.MustSet(eip, next(ins, m))
	return nil
}

func iINC(ins *decoder.Instruction, m *mapper.Mapper) error {
	dst := ins.Operands[0]
	a := m.Read(dst)
	b := expr.Const(1, a.Size())
	r := expr.Add(a, b)
	m.MustSet(dst, r)
	flagsAdd(m, a, b, r, false)
	m.MustSet(eip, next(ins, m))
	return nil
}

func iDEC(ins *decoder.Instruction, m *mapper.Mapper) error {
	dst := ins.Operands[0]
	a := m.Read(dst)
	b := expr.Const(1, a.Size())
	r := expr.Sub(a, b)
	m.MustSet(dst, r)
	flagsSub(m, a, b, r, false)
	m.MustSet(eip, next(ins, m))
	return nil
}

// alu 双操作数算术与逻辑运算，cmp和test不写回
func alu(name string) decoder.Semantic {
	return func(ins *decoder.Instruction, m *mapper.Mapper) error {
		dst := ins.Operands[0]
		a, b := m.Read(dst), m.Read(ins.Operands[1])
		var r expr.Expr
		switch name {
		case "add":
			r = expr.Add(a, b)
			flagsAdd(m, a, b, r, true)
		case "adc":
			c := expr.Zext(m.Read(cf), a.Size())
			r = expr.Add(expr.Add(a, b), c)
			flagsAdd(m, a, b, r, false)
			m.MustSet(cf, expr.Or(expr.Lt(expr.AsUnsigned(r), expr.AsUnsigned(a)),
				expr.And(expr.Bit(c, 0), expr.Eq(r, a))))
		case "sub", "cmp":
			r = expr.Sub(a, b)
			flagsSub(m, a, b, r, true)
		case "sbb":
			c := expr.Zext(m.Read(cf), a.Size())
			r = expr.Sub(expr.Sub(a, b), c)
			flagsSub(m, a, b, r, false)
			m.MustSet(cf, expr.Or(expr.Lt(expr.AsUnsigned(a), expr.AsUnsigned(b)),
				expr.And(expr.Bit(c, 0), expr.Eq(a, b))))
		case "and", "test":
			r = expr.And(a, b)
			flagsLogic(m, r)
		case "or":
			r = expr.Or(a, b)
			flagsLogic(m, r)
		case "xor":
			r = expr.Xor(a, b)
			flagsLogic(m, r)
		}
		if name != "cmp" && name != "test" {
			m.MustSet(dst, r)
		}
		m.MustSet(eip, next(ins, m))
		return nil
	}
}

func semantics() map[string]decoder.Semantic {
	s := map[string]decoder.Semantic{
		"nop":   iNOP,
		"leave": iLEAVE,
		"ret":   iRET,
		"call":  iCALL,
		"jmp":   iJMP,
		"hlt":   iHLT,
		"int3":  iINT3,
		"push":  iPUSH,
		"pop":   iPOP,
		"mov":   iMOV,
		"lea":   iLEA,
		"inc":   iINC,
		"dec":   iDEC,
		"test":  alu("test"),
	}
	for _, n := range aluNames {
		s[n] = alu(n)
	}
	for _, j := range jccTable {
		s[j.name] = iJcc
	}
	return s
}
