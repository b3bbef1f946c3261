package expr

import (
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
)

var (
	u256One  = uint256.NewInt(1)
	u256Ones = new(uint256.Int).Not(new(uint256.Int))
)

// mask 低size位全1
func mask(size uint) *uint256.Int {
	if size >= MaxSize {
		return new(uint256.Int).Set(u256Ones)
	}
	m := new(uint256.Int).Lsh(u256One, size)
	return m.Sub(m, u256One)
}

func bit(v *uint256.Int, i uint) bool {
	return new(uint256.Int).Rsh(v, i).Uint64()&1 == 1
}

// sext 把size位的值按符号扩展到256位
func sext(v *uint256.Int, size uint) *uint256.Int {
	r := new(uint256.Int).Set(v)
	if size < MaxSize && bit(v, size-1) {
		r.Or(r, new(uint256.Int).Not(mask(size)))
	}
	return r
}

// Cst 定宽常量，值总是被截断到位宽之内
type Cst struct {
	v    uint256.Int
	size uint
	sf   bool
}

// Const 创建无符号常量
func Const(v uint64, size uint) *Cst {
	checkWidth(size)
	c := &Cst{size: size}
	c.v.SetUint64(v)
	c.v.And(&c.v, mask(size))
	return c
}

// SConst 创建有符号常量，负数以补码表示
func SConst(v int64, size uint) *Cst {
	checkWidth(size)
	c := &Cst{size: size, sf: true}
	c.v.SetUint64(uint64(v))
	if v < 0 {
		c.v.Or(&c.v, new(uint256.Int).Lsh(u256Ones, 64))
	}
	c.v.And(&c.v, mask(size))
	return c
}

// ConstInt 从uint256创建常量
func ConstInt(v *uint256.Int, size uint) *Cst {
	checkWidth(size)
	c := &Cst{size: size}
	c.v.And(v, mask(size))
	return c
}

// Ones 全1常量
func Ones(size uint) *Cst {
	return ConstInt(u256Ones, size)
}

// Bool 1位常量
func Bool(b bool) *Cst {
	if b {
		return Const(1, 1)
	}
	return Const(0, 1)
}

func (c *Cst) Kind() Kind     { return KindCst }
func (c *Cst) Size() uint     { return c.size }
func (c *Cst) Signed() bool   { return c.sf }
func (c *Cst) Depth() int     { return 1 }
func (c *Cst) Simplify() Expr { return c }

func (c *Cst) Eval(Env) (Expr, error) { return c, nil }

// Value 返回值的拷贝
func (c *Cst) Value() *uint256.Int {
	return new(uint256.Int).Set(&c.v)
}

func (c *Cst) Uint64() uint64 {
	return c.v.Uint64()
}

// Int64 有符号视图
func (c *Cst) Int64() int64 {
	return int64(sext(&c.v, c.size).Uint64())
}

func (c *Cst) IsZero() bool {
	return c.v.IsZero()
}

func (c *Cst) IsOne() bool {
	return c.v.Eq(u256One)
}

func (c *Cst) IsOnes() bool {
	return c.v.Eq(mask(c.size))
}

// Bit 第i位
func (c *Cst) Bit(i uint) bool {
	return bit(&c.v, i)
}

// negative 有符号视图下是否为负
func (c *Cst) negative() bool {
	return bit(&c.v, c.size-1)
}

func (c *Cst) String() string {
	if c.sf && c.negative() {
		n := new(uint256.Int).Sub(new(uint256.Int), &c.v)
		n.And(n, mask(c.size))
		return "-" + hexString(n)
	}
	return hexString(&c.v)
}

func hexString(v *uint256.Int) string {
	if v.IsUint64() {
		return fmt.Sprintf("%#x", v.Uint64())
	}
	return v.Hex()
}

func (c *Cst) withSign(sf bool) *Cst {
	r := *c
	r.sf = sf
	return &r
}

// Sym 带名字的常量，求值时退化为Cst
type Sym struct {
	Name string
	v    uint256.Int
	size uint
}

func NewSym(name string, v uint64, size uint) *Sym {
	checkWidth(size)
	s := &Sym{Name: name, size: size}
	s.v.SetUint64(v)
	s.v.And(&s.v, mask(size))
	return s
}

func (s *Sym) Kind() Kind     { return KindSym }
func (s *Sym) Size() uint     { return s.size }
func (s *Sym) Signed() bool   { return false }
func (s *Sym) Depth() int     { return 1 }
func (s *Sym) Simplify() Expr { return s }
func (s *Sym) String() string { return s.Name }

func (s *Sym) Eval(Env) (Expr, error) {
	return ConstInt(&s.v, s.size), nil
}

// Value 符号对应的常量
func (s *Sym) Value() *Cst {
	return ConstInt(&s.v, s.size)
}

// Flt 浮点常量
type Flt struct {
	V    float64
	size uint
}

func NewFlt(v float64, size uint) *Flt {
	if size != 32 && size != 64 {
		panic(&SizeMismatchError{Op: "float", Left: size, Right: 64})
	}
	if size == 32 {
		v = float64(float32(v))
	}
	return &Flt{V: v, size: size}
}

func (f *Flt) Kind() Kind             { return KindFlt }
func (f *Flt) Size() uint             { return f.size }
func (f *Flt) Signed() bool           { return true }
func (f *Flt) Depth() int             { return 1 }
func (f *Flt) Simplify() Expr         { return f }
func (f *Flt) Eval(Env) (Expr, error) { return f, nil }

func (f *Flt) String() string {
	return strconv.FormatFloat(f.V, 'g', -1, int(f.size))
}

// Top 未知值
type Top struct {
	size uint
}

// NewTop 创建size位的Top
func NewTop(size uint) *Top {
	return &Top{size: size}
}

func (t *Top) Kind() Kind             { return KindTop }
func (t *Top) Size() uint             { return t.size }
func (t *Top) Signed() bool           { return false }
func (t *Top) Depth() int             { return 1 }
func (t *Top) Simplify() Expr         { return t }
func (t *Top) Eval(Env) (Expr, error) { return t, nil }
func (t *Top) String() string         { return "⊤" + strconv.Itoa(int(t.size)) }

// Ext 外部符号，例如导入函数，执行时触发mapper中注册的桩
type Ext struct {
	Name string
	size uint
}

func NewExt(name string, size uint) *Ext {
	return &Ext{Name: name, size: size}
}

func (x *Ext) Kind() Kind             { return KindExt }
func (x *Ext) Size() uint             { return x.size }
func (x *Ext) Signed() bool           { return false }
func (x *Ext) Depth() int             { return 1 }
func (x *Ext) Simplify() Expr         { return x }
func (x *Ext) Eval(Env) (Expr, error) { return x, nil }
func (x *Ext) String() string         { return "@" + x.Name }
