package expr

import (
	"fmt"
)

// Operator 运算符
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpMul2
	OpDiv
	OpMod
	OpNeg
	OpAnd
	OpOr
	OpXor
	OpNot
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpShl
	OpShr
	OpSar
	OpRol
	OpRor
)

var opSymbols = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpMul2: "**", OpDiv: "/", OpMod: "%", OpNeg: "-",
	OpAnd: "&", OpOr: "|", OpXor: "^", OpNot: "~",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpShl: "<<", OpShr: ">>", OpSar: ".>>", OpRol: "<<<", OpRor: ">>>",
}

func (op Operator) String() string {
	if int(op) < len(opSymbols) {
		return opSymbols[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// Prop 运算性质位，标记子树中出现过的运算类别
type Prop uint8

const (
	PropArith Prop = 1 << iota
	PropLogic
	PropCompare
	PropShift
)

func (op Operator) prop() Prop {
	switch {
	case op.isLogic():
		return PropLogic
	case op.isCompare():
		return PropCompare
	case op >= OpShl:
		return PropShift
	}
	return PropArith
}

func (op Operator) unary() bool {
	return op == OpNot || op == OpNeg
}

func (op Operator) isLogic() bool {
	return op == OpAnd || op == OpOr || op == OpXor || op == OpNot
}

func (op Operator) isCompare() bool {
	return op >= OpEq && op <= OpGe
}

func (op Operator) commutative() bool {
	switch op {
	case OpAdd, OpMul, OpMul2, OpAnd, OpOr, OpXor, OpEq, OpNe:
		return true
	}
	return false
}

func (op Operator) resultSize(size uint) uint {
	switch {
	case op.isCompare():
		return 1
	case op == OpMul2:
		return 2 * size
	}
	return size
}

// negation 比较运算的取反
func (op Operator) negation() (Operator, bool) {
	switch op {
	case OpEq:
		return OpNe, true
	case OpNe:
		return OpEq, true
	case OpLt:
		return OpGe, true
	case OpGe:
		return OpLt, true
	case OpGt:
		return OpLe, true
	case OpLe:
		return OpGt, true
	}
	return op, false
}

// Op 一元或二元运算，一元运算R为nil
type Op struct {
	Op    Operator
	L, R  Expr
	size  uint
	sf    bool
	depth int
	prop  Prop
}

// NewOp 带检查的运算构造，构造时完成化简
func NewOp(op Operator, l, r Expr) (Expr, error) {
	if l == nil {
		return nil, &UndefinedError{What: "operand of " + op.String()}
	}
	if op.unary() {
		if r != nil {
			return nil, &UndefinedError{What: "second operand of unary " + op.String()}
		}
	} else {
		if r == nil {
			return nil, &UndefinedError{What: "second operand of " + op.String()}
		}
		if l.Size() != r.Size() {
			return nil, &SizeMismatchError{Op: op.String(), Left: l.Size(), Right: r.Size()}
		}
	}
	if op == OpMul2 && 2*l.Size() > MaxSize {
		return nil, &SizeMismatchError{Op: op.String(), Left: 2 * l.Size(), Right: MaxSize}
	}
	return simplifyOp(op, l, r), nil
}

func (o *Op) Kind() Kind   { return KindOp }
func (o *Op) Size() uint   { return o.size }
func (o *Op) Signed() bool { return o.sf }
func (o *Op) Depth() int   { return o.depth }

// Props 子树中的运算类别
func (o *Op) Props() Prop { return o.prop }

func (o *Op) String() string {
	if o.R == nil {
		return fmt.Sprintf("(%s%s)", o.Op, o.L)
	}
	return fmt.Sprintf("(%s%s%s)", o.L, o.Op, o.R)
}

func (o *Op) Simplify() Expr {
	var r Expr
	if o.R != nil {
		r = o.R.Simplify()
	}
	return o.rebuild(o.L.Simplify(), r)
}

func (o *Op) Eval(env Env) (Expr, error) {
	l, err := o.L.Eval(env)
	if err != nil {
		return nil, err
	}
	var r Expr
	if o.R != nil {
		if r, err = o.R.Eval(env); err != nil {
			return nil, err
		}
	}
	return o.rebuild(l, r), nil
}

func (o *Op) rebuild(l, r Expr) Expr {
	if o.sf {
		l = AsSigned(l)
		if r != nil {
			r = AsSigned(r)
		}
	}
	return simplifyOp(o.Op, l, r)
}

// Props 返回表达式中出现的运算类别
func Props(e Expr) Prop {
	switch x := e.(type) {
	case *Op:
		return x.prop
	case *Slc:
		return Props(x.X)
	case *Comp:
		var p Prop
		for _, part := range x.Parts {
			p |= Props(part.X)
		}
		return p
	case *Tst:
		return Props(x.Cond) | Props(x.T) | Props(x.F)
	case *Vec:
		var p Prop
		for _, it := range x.Items {
			p |= Props(it)
		}
		return p
	}
	return 0
}

func mk(op Operator, l, r Expr) Expr {
	o := &Op{Op: op, L: l, R: r, size: op.resultSize(l.Size()), prop: op.prop() | Props(l)}
	o.sf = l.Signed()
	o.depth = l.Depth() + 1
	if r != nil {
		o.sf = o.sf || r.Signed()
		o.prop |= Props(r)
		if d := r.Depth() + 1; d > o.depth {
			o.depth = d
		}
	}
	if op.isCompare() {
		o.sf = false
	}
	if o.depth > threshold {
		return NewTop(o.size)
	}
	return o
}

const maxVecProduct = 16

func simplifyOp(op Operator, l, r Expr) Expr {
	size := op.resultSize(l.Size())
	if IsTop(l) || (r != nil && IsTop(r)) {
		return NewTop(size)
	}
	if v, ok := distribute(op, l, r); ok {
		return v
	}
	if s, ok := l.(*Sym); ok && r == nil {
		l = s.Value()
	}
	lc, lok := l.(*Cst)
	rc, rok := r.(*Cst)
	if lok && (r == nil || rok) {
		return fold(op, lc, rc)
	}
	if lf, ok := l.(*Flt); ok {
		if rf, ok := r.(*Flt); ok || r == nil {
			if v, ok := ffold(op, lf, rf); ok {
				return v
			}
		}
	}
	if op.commutative() && lok && !rok {
		l, r = r, l
		rc, rok = lc, true
	}
	if r == nil {
		return simplifyUnary(op, l)
	}
	if rok {
		if v, ok := simplifyConst(op, l, rc); ok {
			return v
		}
	}
	if Equal(l, r) {
		switch op {
		case OpSub, OpXor:
			return Const(0, size)
		case OpAnd, OpOr:
			return l
		case OpEq, OpLe, OpGe:
			return Const(1, 1)
		case OpNe, OpLt, OpGt:
			return Const(0, 1)
		}
	}
	return mk(op, l, r)
}

func simplifyUnary(op Operator, l Expr) Expr {
	if o, ok := l.(*Op); ok {
		if o.Op == op && o.R == nil {
			return o.L
		}
		if op == OpNot && o.size == 1 {
			if neg, ok := o.Op.negation(); ok {
				return mk(neg, o.L, o.R)
			}
		}
	}
	return mk(op, l, nil)
}

func simplifyConst(op Operator, l Expr, rc *Cst) (Expr, bool) {
	size := l.Size()
	switch op {
	case OpAdd:
		return addConst(l, rc), true
	case OpSub:
		return addConst(l, fold(OpNeg, rc, nil).(*Cst)), true
	case OpMul:
		if rc.IsZero() {
			return Const(0, size), true
		}
		if rc.IsOne() {
			return l, true
		}
	case OpDiv:
		if rc.IsOne() {
			return l, true
		}
	case OpMod:
		if rc.IsOne() {
			return Const(0, size), true
		}
	case OpAnd:
		if rc.IsZero() {
			return rc, true
		}
		if rc.IsOnes() {
			return l, true
		}
	case OpOr:
		if rc.IsZero() {
			return l, true
		}
		if rc.IsOnes() {
			return rc, true
		}
	case OpXor:
		if rc.IsZero() {
			return l, true
		}
		if rc.IsOnes() {
			return simplifyUnary(OpNot, l), true
		}
	case OpShl, OpShr:
		if rc.IsZero() {
			return l, true
		}
		if !rc.v.IsUint64() || rc.Uint64() >= uint64(size) {
			return Const(0, size), true
		}
	case OpSar:
		if rc.IsZero() {
			return l, true
		}
		if !rc.v.IsUint64() || rc.Uint64() >= uint64(size) {
			return mk(OpSar, l, Const(uint64(size-1), size)), true
		}
	case OpRol, OpRor:
		if rc.Uint64()%uint64(size) == 0 && rc.v.IsUint64() {
			return l, true
		}
	case OpEq, OpNe:
		if size == 1 {
			if (op == OpEq) == rc.IsOne() {
				return l, true
			}
			return simplifyUnary(OpNot, l), true
		}
	}
	if o, ok := l.(*Op); ok && o.Op == op {
		switch op {
		case OpMul, OpAnd, OpOr, OpXor:
			if c, ok := o.R.(*Cst); ok {
				return simplifyOp(op, o.L, fold(op, c, rc)), true
			}
		}
	}
	return nil, false
}

// addConst 构造x+k，合并x中已有的常量偏移，负偏移表示为减法
func addConst(x Expr, k *Cst) Expr {
	size := x.Size()
	base, acc := x, k.Value()
	if o, ok := x.(*Op); ok && (o.Op == OpAdd || o.Op == OpSub) {
		if c, ok := o.R.(*Cst); ok {
			base = o.L
			if o.Op == OpAdd {
				acc.Add(acc, &c.v)
			} else {
				acc.Sub(acc, &c.v)
			}
		}
	}
	kk := ConstInt(acc, size)
	if bc, ok := base.(*Cst); ok {
		return fold(OpAdd, bc, kk)
	}
	if kk.IsZero() {
		return base
	}
	if size > 1 && kk.negative() {
		return mk(OpSub, base, fold(OpNeg, kk, nil))
	}
	return mk(OpAdd, base, kk)
}

func distribute(op Operator, l, r Expr) (Expr, bool) {
	lv, lok := l.(*Vec)
	rv, rok := r.(*Vec)
	if !lok && !rok {
		return nil, false
	}
	ls, rs := []Expr{l}, []Expr{r}
	if lok {
		ls = lv.Items
	}
	if rok {
		rs = rv.Items
	}
	if len(ls)*len(rs) > maxVecProduct {
		return nil, false
	}
	items := make([]Expr, 0, len(ls)*len(rs))
	for _, a := range ls {
		for _, b := range rs {
			if r == nil {
				items = append(items, simplifyOp(op, a, nil))
			} else {
				items = append(items, simplifyOp(op, a, b))
			}
		}
	}
	v, err := NewVec(items...)
	if err != nil {
		return nil, false
	}
	return v, true
}
