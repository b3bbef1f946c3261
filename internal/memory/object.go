// Package memory 分区内存模型：每个基址一个区域，区域内按偏移有序存放互不重叠的对象
package memory

import (
	"fmt"

	"gbinsym/internal/expr"
)

// Object 区域内的一段连续内容，具体字节或符号表达式二者之一
type Object struct {
	VAddr  int64
	Data   []byte
	Value  expr.Expr
	Endian expr.Endian
}

// Len 字节长度
func (o *Object) Len() int64 {
	if o.Value != nil {
		return int64(o.Value.Size() / 8)
	}
	return int64(len(o.Data))
}

// End 结束地址（不含）
func (o *Object) End() int64 {
	return o.VAddr + o.Len()
}

func (o *Object) contains(addr int64) bool {
	return o.VAddr <= addr && addr < o.End()
}

// cut 截取[lo, hi)的部分
func (o *Object) cut(lo, hi int64) *Object {
	if lo <= o.VAddr && hi >= o.End() {
		return o
	}
	if lo < o.VAddr {
		lo = o.VAddr
	}
	if hi > o.End() {
		hi = o.End()
	}
	r := &Object{VAddr: lo, Endian: o.Endian}
	if o.Value == nil {
		r.Data = o.Data[lo-o.VAddr : hi-o.VAddr]
		return r
	}
	n, k := o.Len(), hi-lo
	off := lo - o.VAddr
	var pos int64
	if o.Endian == expr.BigEndian {
		pos = (n - off - k) * 8
	} else {
		pos = off * 8
	}
	r.Value = expr.Slice(o.Value, uint(pos), uint(k*8))
	return r
}

func (o *Object) String() string {
	if o.Value != nil {
		return fmt.Sprintf("<%#x: %s>", o.VAddr, o.Value)
	}
	return fmt.Sprintf("<%#x: %x>", o.VAddr, o.Data)
}

// Fragment 读取结果的一段；Data与Value都为空时表示未映射的空洞
type Fragment struct {
	VAddr  int64
	Len    int64
	Data   []byte
	Value  expr.Expr
	Endian expr.Endian
}

// Hole 是否是未映射的空洞
func (f *Fragment) Hole() bool {
	return f.Data == nil && f.Value == nil
}
