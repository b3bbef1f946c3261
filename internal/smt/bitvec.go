package smt

import (
	"fmt"

	"github.com/holiman/uint256"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

// BitVec 位向量项
type BitVec struct {
	name  string
	value yices2.TermT
}

// NewBitVec 新的未解释位向量
func NewBitVec(name string, size uint32) *BitVec {
	term := yices2.NewUninterpretedTerm(yices2.BvType(size))
	if name != "" {
		yices2.SetTermName(term, name)
	}
	return &BitVec{
		name:  name,
		value: term,
	}
}

func NewBitVecFromTerm(value yices2.TermT) *BitVec {
	return &BitVec{value: value}
}

// NewBitVecVal 常量，size最大256
func NewBitVecVal(value *uint256.Int, size uint32) *BitVec {
	v := make([]int32, size)
	for j := uint32(0); j < size && j < 256; j++ {
		if value[j/64]>>(j%64)&1 == 1 {
			v[j] = 1
		}
	}
	return &BitVec{value: yices2.BvconstFromArray(v)}
}

func NewBitVecValInt64(value int64, size uint32) *BitVec {
	return &BitVec{value: yices2.BvconstInt64(size, value)}
}

// GetBigBvValue 常量项的值
func GetBigBvValue(value yices2.TermT) (*uint256.Int, error) {
	bits := make([]int32, yices2.TermBitsize(value))
	if errcode := yices2.BvConstValue(value, bits); errcode != 0 {
		return nil, fmt.Errorf("%s", yices2.ErrorString())
	}
	return fromBits(bits), nil
}

func fromBits(bits []int32) *uint256.Int {
	r := new(uint256.Int)
	for i := len(bits) - 1; i >= 0 && i < 256; i-- {
		r.Lsh(r, 1)
		if bits[i] == 1 {
			r.Or(r, uint256.NewInt(1))
		}
	}
	return r
}

func (bv *BitVec) GetRaw() yices2.TermT {
	return bv.value
}

func (bv *BitVec) Size() uint32 {
	return yices2.TermBitsize(bv.value)
}

// IsSymbolic 不是常量
func (bv *BitVec) IsSymbolic() bool {
	return yices2.TermConstructor(bv.value) != yices2.TrmCnstrBvConstant
}

// Value 常量的值
func (bv *BitVec) Value() (*uint256.Int, error) {
	return GetBigBvValue(bv.value)
}

func (bv *BitVec) String() string {
	if v, err := bv.Value(); err == nil {
		return v.Hex()
	}
	if bv.name != "" {
		return bv.name
	}
	return fmt.Sprintf("term(%d)", bv.value)
}

func (bv *BitVec) wrap(term yices2.TermT) *BitVec {
	return &BitVec{value: term}
}

// Concat bv为高位
func (bv *BitVec) Concat(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvconcat2(bv.value, other.value))
}

// Extract 取[lo, hi]位
func (bv *BitVec) Extract(lo, hi uint32) *BitVec {
	return bv.wrap(yices2.Bvextract(bv.value, lo, hi))
}

func (bv *BitVec) ZeroExtend(n uint32) *BitVec {
	return bv.wrap(yices2.ZeroExtend(bv.value, n))
}

func (bv *BitVec) SignExtend(n uint32) *BitVec {
	return bv.wrap(yices2.SignExtend(bv.value, n))
}

func (bv *BitVec) Not() *BitVec {
	return bv.wrap(yices2.Bvnot(bv.value))
}

func (bv *BitVec) Neg() *BitVec {
	return bv.wrap(yices2.Bvneg(bv.value))
}

func (bv *BitVec) Add(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvadd(bv.value, other.value))
}

func (bv *BitVec) Sub(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvsub(bv.value, other.value))
}

func (bv *BitVec) Mul(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvmul(bv.value, other.value))
}

func (bv *BitVec) UDiv(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvdiv(bv.value, other.value))
}

func (bv *BitVec) SDiv(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvsdiv(bv.value, other.value))
}

func (bv *BitVec) URem(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvrem(bv.value, other.value))
}

// SRem 结果的符号与被除数相同
func (bv *BitVec) SRem(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvsrem(bv.value, other.value))
}

func (bv *BitVec) And(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvand2(bv.value, other.value))
}

func (bv *BitVec) Or(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvor2(bv.value, other.value))
}

func (bv *BitVec) Xor(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvxor2(bv.value, other.value))
}

func (bv *BitVec) Shl(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvshl(bv.value, other.value))
}

// Shr 逻辑右移
func (bv *BitVec) Shr(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvlshr(bv.value, other.value))
}

// AShr 算术右移
func (bv *BitVec) AShr(other *BitVec) *BitVec {
	return bv.wrap(yices2.Bvashr(bv.value, other.value))
}

// Rol 循环左移，移位数按位宽取模
func (bv *BitVec) Rol(other *BitVec) *BitVec {
	size := NewBitVecValInt64(int64(bv.Size()), bv.Size())
	n := other.URem(size)
	return bv.Shl(n).Or(bv.Shr(size.Sub(n)))
}

func (bv *BitVec) Ror(other *BitVec) *BitVec {
	size := NewBitVecValInt64(int64(bv.Size()), bv.Size())
	n := other.URem(size)
	return bv.Shr(n).Or(bv.Shl(size.Sub(n)))
}

func (bv *BitVec) Eq(other *BitVec) *Bool {
	return NewBoolFromTerm(yices2.BveqAtom(bv.value, other.value))
}

func (bv *BitVec) Ne(other *BitVec) *Bool {
	return NewBoolFromTerm(yices2.BvneqAtom(bv.value, other.value))
}

// Ult Bv{xxxx} 无符号，Bvs{xxxx} 有符号
func (bv *BitVec) Ult(other *BitVec) *Bool {
	return NewBoolFromTerm(yices2.BvltAtom(bv.value, other.value))
}

func (bv *BitVec) Ule(other *BitVec) *Bool {
	return NewBoolFromTerm(yices2.BvleAtom(bv.value, other.value))
}

func (bv *BitVec) Ugt(other *BitVec) *Bool {
	return NewBoolFromTerm(yices2.BvgtAtom(bv.value, other.value))
}

func (bv *BitVec) Uge(other *BitVec) *Bool {
	return NewBoolFromTerm(yices2.BvgeAtom(bv.value, other.value))
}

func (bv *BitVec) Lt(other *BitVec) *Bool {
	return NewBoolFromTerm(yices2.BvsltAtom(bv.value, other.value))
}

func (bv *BitVec) Le(other *BitVec) *Bool {
	return NewBoolFromTerm(yices2.BvsleAtom(bv.value, other.value))
}

func (bv *BitVec) Gt(other *BitVec) *Bool {
	return NewBoolFromTerm(yices2.BvsgtAtom(bv.value, other.value))
}

func (bv *BitVec) Ge(other *BitVec) *Bool {
	return NewBoolFromTerm(yices2.BvsgeAtom(bv.value, other.value))
}

// AsBool 非零为真
func (bv *BitVec) AsBool() *Bool {
	return bv.Ne(NewBitVecValInt64(0, bv.Size()))
}
