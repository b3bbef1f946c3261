package expr

func binary(op Operator, l, r Expr) Expr {
	return Must(NewOp(op, l, r))
}

func Add(l, r Expr) Expr  { return binary(OpAdd, l, r) }
func Sub(l, r Expr) Expr  { return binary(OpSub, l, r) }
func Mul(l, r Expr) Expr  { return binary(OpMul, l, r) }
func Mul2(l, r Expr) Expr { return binary(OpMul2, l, r) }
func Div(l, r Expr) Expr  { return binary(OpDiv, l, r) }
func Rem(l, r Expr) Expr  { return binary(OpMod, l, r) }
func And(l, r Expr) Expr  { return binary(OpAnd, l, r) }
func Or(l, r Expr) Expr   { return binary(OpOr, l, r) }
func Xor(l, r Expr) Expr  { return binary(OpXor, l, r) }
func Eq(l, r Expr) Expr   { return binary(OpEq, l, r) }
func Ne(l, r Expr) Expr   { return binary(OpNe, l, r) }
func Lt(l, r Expr) Expr   { return binary(OpLt, l, r) }
func Le(l, r Expr) Expr   { return binary(OpLe, l, r) }
func Gt(l, r Expr) Expr   { return binary(OpGt, l, r) }
func Ge(l, r Expr) Expr   { return binary(OpGe, l, r) }
func Shl(l, r Expr) Expr  { return binary(OpShl, l, r) }
func Shr(l, r Expr) Expr  { return binary(OpShr, l, r) }
func Sar(l, r Expr) Expr  { return binary(OpSar, l, r) }
func Rol(l, r Expr) Expr  { return binary(OpRol, l, r) }
func Ror(l, r Expr) Expr  { return binary(OpRor, l, r) }

func Not(x Expr) Expr { return Must(NewOp(OpNot, x, nil)) }
func Neg(x Expr) Expr { return Must(NewOp(OpNeg, x, nil)) }

// AddN x加上有符号常量n
func AddN(x Expr, n int64) Expr {
	return Add(x, SConst(n, x.Size()))
}

// ShlN 按常量左移
func ShlN(x Expr, n uint) Expr {
	return Shl(x, Const(uint64(n), x.Size()))
}

// ShrN 按常量逻辑右移
func ShrN(x Expr, n uint) Expr {
	return Shr(x, Const(uint64(n), x.Size()))
}

// Bit 取第i位
func Bit(x Expr, i uint) Expr {
	return Slice(x, i, 1)
}

// AsSigned 返回有符号视图
func AsSigned(e Expr) Expr {
	return withSign(e, true)
}

// AsUnsigned 返回无符号视图
func AsUnsigned(e Expr) Expr {
	return withSign(e, false)
}

func withSign(e Expr, sf bool) Expr {
	if e.Signed() == sf {
		return e
	}
	switch x := e.(type) {
	case *Cst:
		return x.withSign(sf)
	case *Reg:
		r := *x
		r.sf = sf
		return &r
	case *Slc:
		r := *x
		r.sf = sf
		return &r
	case *Mem:
		r := *x
		r.sf = sf
		return &r
	case *Comp:
		r := *x
		r.sf = sf
		return &r
	case *Op:
		r := *x
		r.sf = sf
		return &r
	case *Tst:
		return ite(x.Cond, withSign(x.T, sf), withSign(x.F, sf))
	}
	return e
}
