package smt

import (
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

type Bool struct {
	value yices2.TermT
}

func NewBoolVal(value bool) *Bool {
	if value {
		return &Bool{value: yices2.True()}
	}
	return &Bool{value: yices2.False()}
}

func NewBoolFromTerm(term yices2.TermT) *Bool {
	return &Bool{value: term}
}

func (b *Bool) GetRaw() yices2.TermT {
	return b.value
}

func (b *Bool) Not() *Bool {
	return &Bool{value: yices2.Not(b.value)}
}

func (b *Bool) And(other *Bool) *Bool {
	return &Bool{value: yices2.And2(b.value, other.value)}
}

func (b *Bool) Or(other *Bool) *Bool {
	return &Bool{value: yices2.Or2(b.value, other.value)}
}

// Any 析取，空时为假
func Any(bs ...*Bool) *Bool {
	if len(bs) == 0 {
		return NewBoolVal(false)
	}
	terms := make([]yices2.TermT, len(bs))
	for i, b := range bs {
		terms[i] = b.value
	}
	return &Bool{value: yices2.Or(terms)}
}

// Ite 条件选择
func (b *Bool) Ite(t, f *BitVec) *BitVec {
	return NewBitVecFromTerm(yices2.Ite(b.value, t.value, f.value))
}

// AsBitVec 1位位向量
func (b *Bool) AsBitVec() *BitVec {
	return b.Ite(NewBitVecValInt64(1, 1), NewBitVecValInt64(0, 1))
}

func (b *Bool) IsSymbolic() bool {
	return yices2.TermConstructor(b.value) != yices2.TrmCnstrBoolConstant
}

func (b *Bool) IsTrue() bool {
	var val int32
	if yices2.BoolConstValue(b.value, &val) != 0 {
		return false
	}
	return val != 0
}
