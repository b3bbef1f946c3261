package smt

import (
	"gbinsym/internal/expr"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

// Array 内存模型：地址到字节的函数，Store返回更新后的新数组
type Array struct {
	Name string
	term yices2.TermT
}

// NewArray 地址宽度为domain位的字节数组
func NewArray(name string, domain uint32) *Array {
	ft := yices2.FunctionType1(yices2.BvType(domain), yices2.BvType(8))
	term := yices2.NewUninterpretedTerm(ft)
	if name != "" {
		yices2.SetTermName(term, name)
	}
	return &Array{Name: name, term: term}
}

func (array *Array) GetRaw() yices2.TermT {
	return array.term
}

// Select 读一个字节
func (array *Array) Select(index *BitVec) *BitVec {
	return NewBitVecFromTerm(yices2.Application1(array.term, index.GetRaw()))
}

// Store 写一个字节
func (array *Array) Store(index, value *BitVec) *Array {
	r := *array
	r.term = yices2.Update1(array.term, index.GetRaw(), value.GetRaw())
	return &r
}

// Load 读取n个字节，按字节序拼接
func (array *Array) Load(addr *BitVec, n int, endian expr.Endian) *BitVec {
	var res *BitVec
	for i := 0; i < n; i++ {
		b := array.Select(addr.Add(NewBitVecValInt64(int64(i), addr.Size())))
		switch {
		case res == nil:
			res = b
		case endian == expr.BigEndian:
			res = res.Concat(b)
		default:
			res = b.Concat(res)
		}
	}
	return res
}

// Write 按字节序写入值，值的位宽必须是8的倍数
func (array *Array) Write(addr, value *BitVec, endian expr.Endian) *Array {
	n := int(value.Size() / 8)
	r := array
	for i := 0; i < n; i++ {
		k := i
		if endian == expr.BigEndian {
			k = n - 1 - i
		}
		b := value.Extract(uint32(8*k), uint32(8*k+7))
		r = r.Store(addr.Add(NewBitVecValInt64(int64(i), addr.Size())), b)
	}
	return r
}
