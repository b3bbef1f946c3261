// Package expr 符号表达式代数：常量、寄存器、内存、切片、拼接、运算、条件与集合
package expr

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// MaxSize 表达式的最大位宽
const MaxSize = 256

// Kind 表达式种类
type Kind int

const (
	KindCst Kind = iota
	KindSym
	KindFlt
	KindReg
	KindSlc
	KindComp
	KindMem
	KindPtr
	KindExt
	KindTst
	KindOp
	KindVec
	KindVecW
	KindTop
)

var kindNames = [...]string{"cst", "sym", "flt", "reg", "slc", "comp", "mem", "ptr", "ext", "tst", "op", "vec", "vecw", "top"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Endian 内存读写的字节序
type Endian int

const (
	LittleEndian Endian = 1
	BigEndian    Endian = -1
)

func (e Endian) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// Expr 所有表达式的公共接口
// 表达式构造后不可变，Simplify/Eval 总是返回新的表达式
type Expr interface {
	Kind() Kind
	Size() uint
	Signed() bool
	Depth() int
	String() string
	Eval(env Env) (Expr, error)
	Simplify() Expr
}

// Env 表达式求值的环境，一般由 mapper 提供
type Env interface {
	Lookup(r *Reg) Expr
	Load(p *Ptr, size uint, endian Endian) (Expr, error)
}

var threshold = 100

// Threshold 返回当前的widening阈值
func Threshold() int {
	return threshold
}

// SetThreshold 设置表达式深度的widening阈值，深度超过阈值的表达式变成Top
func SetThreshold(n int) {
	if n > 0 {
		threshold = n
	}
}

// Hash 表达式的结构哈希，相等的表达式哈希相同
func Hash(e Expr) uint64 {
	if e == nil {
		return 0
	}
	d := xxhash.New()
	_, _ = d.WriteString(e.Kind().String())
	_, _ = d.WriteString(strconv.FormatUint(uint64(e.Size()), 10))
	_, _ = d.WriteString(e.String())
	return d.Sum64()
}

// Equal 结构相等
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() || a.Size() != b.Size() {
		return false
	}
	switch x := a.(type) {
	case *Cst:
		y := b.(*Cst)
		return x.v.Eq(&y.v)
	case *Sym:
		y := b.(*Sym)
		return x.Name == y.Name && x.v.Eq(&y.v)
	case *Flt:
		return x.V == b.(*Flt).V
	case *Reg:
		return x.Name == b.(*Reg).Name
	case *Slc:
		y := b.(*Slc)
		return x.Pos == y.Pos && Equal(x.X, y.X)
	case *Comp:
		y := b.(*Comp)
		if len(x.Parts) != len(y.Parts) {
			return false
		}
		for i := range x.Parts {
			if x.Parts[i].Pos != y.Parts[i].Pos || !Equal(x.Parts[i].X, y.Parts[i].X) {
				return false
			}
		}
		return true
	case *Mem:
		y := b.(*Mem)
		if x.Endian != y.Endian || !Equal(x.A, y.A) || len(x.Mods) != len(y.Mods) {
			return false
		}
		for i := range x.Mods {
			if !Equal(x.Mods[i].A, y.Mods[i].A) || !Equal(x.Mods[i].V, y.Mods[i].V) {
				return false
			}
		}
		return true
	case *Ptr:
		y := b.(*Ptr)
		return x.Disp == y.Disp && Equal(x.Base, y.Base) && Equal(x.Seg, y.Seg)
	case *Ext:
		return x.Name == b.(*Ext).Name
	case *Tst:
		y := b.(*Tst)
		return Equal(x.Cond, y.Cond) && Equal(x.T, y.T) && Equal(x.F, y.F)
	case *Op:
		y := b.(*Op)
		return x.Op == y.Op && Equal(x.L, y.L) && Equal(x.R, y.R)
	case *Vec:
		y := b.(*Vec)
		if len(x.Items) != len(y.Items) {
			return false
		}
		for _, i := range x.Items {
			if !y.Contains(i) {
				return false
			}
		}
		return true
	case *Top:
		return true
	}
	return false
}

// Must 用于语义函数中，出错时panic，由cpu的执行边界恢复
func Must(e Expr, err error) Expr {
	if err != nil {
		panic(err)
	}
	return e
}

// IsTop 判断表达式是否为Top或者widen后的集合
func IsTop(e Expr) bool {
	switch e.(type) {
	case *Top:
		return true
	case *Vec:
		return e.Kind() == KindVecW
	}
	return false
}

// IsConst 判断是否是常量
func IsConst(e Expr) bool {
	_, ok := e.(*Cst)
	return ok
}

func maxDepth(es ...Expr) int {
	d := 0
	for _, e := range es {
		if e != nil && e.Depth() > d {
			d = e.Depth()
		}
	}
	return d
}

func checkWidth(size uint) {
	if size == 0 || size > MaxSize {
		panic(&SizeMismatchError{Op: "width", Left: size, Right: MaxSize})
	}
}
