package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Ptr 地址：基址表达式 + 段 + 偏移，基址为nil表示绝对地址
type Ptr struct {
	Base Expr
	Seg  Expr
	Disp int64
	size uint
}

// NewPtr 创建指针，基址中的常量部分折叠进偏移
func NewPtr(base Expr, disp int64) *Ptr {
	return newPtr(base, nil, disp)
}

// AbsPtr 绝对地址
func AbsPtr(addr uint64, size uint) *Ptr {
	p := &Ptr{Disp: int64(addr), size: size}
	p.Disp = normDisp(nil, p.Disp, size)
	return p
}

// AsPtr 把地址表达式规范化为指针
func AsPtr(a Expr) *Ptr {
	if p, ok := a.(*Ptr); ok {
		return p
	}
	return newPtr(a, nil, 0)
}

func newPtr(base, seg Expr, disp int64) *Ptr {
	size := uint(0)
	for base != nil {
		if size == 0 {
			size = base.Size()
		}
		switch b := base.(type) {
		case *Cst:
			disp += int64(b.Uint64())
			base = nil
			continue
		case *Ptr:
			disp += b.Disp
			if seg == nil {
				seg = b.Seg
			}
			base = b.Base
			continue
		case *Op:
			if c, ok := b.R.(*Cst); ok && (b.Op == OpAdd || b.Op == OpSub) {
				if b.Op == OpAdd {
					disp += c.Int64()
				} else {
					disp -= c.Int64()
				}
				base = b.L
				continue
			}
		}
		break
	}
	return &Ptr{Base: base, Seg: seg, Disp: normDisp(base, disp, size), size: size}
}

// normDisp 绝对地址按无符号截断，相对偏移按有符号截断
func normDisp(base Expr, disp int64, size uint) int64 {
	if size == 0 || size >= 64 {
		return disp
	}
	u := uint64(disp) & (1<<size - 1)
	if base != nil && u&(1<<(size-1)) != 0 {
		return int64(u | ^uint64(1<<size-1))
	}
	return int64(u)
}

// WithSeg 设置段
func (p *Ptr) WithSeg(seg Expr) *Ptr {
	r := *p
	r.Seg = seg
	return &r
}

// Displace 地址增加n字节
func (p *Ptr) Displace(n int64) *Ptr {
	r := *p
	r.Disp = normDisp(r.Base, r.Disp+n, r.size)
	return &r
}

func (p *Ptr) Kind() Kind   { return KindPtr }
func (p *Ptr) Size() uint   { return p.size }
func (p *Ptr) Signed() bool { return false }

func (p *Ptr) Depth() int {
	return maxDepth(p.Base, p.Seg) + 1
}

func (p *Ptr) Simplify() Expr {
	if p.Base == nil {
		return p
	}
	return newPtr(p.Base.Simplify(), p.Seg, p.Disp)
}

// Addr 指针对应的地址表达式（不含段）
func (p *Ptr) Addr() Expr {
	if p.Base == nil {
		return Const(uint64(p.Disp), p.size)
	}
	return addConst(p.Base, SConst(p.Disp, p.size))
}

func (p *Ptr) Eval(env Env) (Expr, error) {
	return p.eval(env)
}

func (p *Ptr) eval(env Env) (*Ptr, error) {
	if env == nil || (p.Base == nil && p.Seg == nil) {
		return p, nil
	}
	var (
		base, seg Expr
		err       error
	)
	if p.Base != nil {
		if base, err = p.Base.Eval(env); err != nil {
			return nil, err
		}
	}
	if p.Seg != nil {
		if seg, err = p.Seg.Eval(env); err != nil {
			return nil, err
		}
	}
	r := newPtr(base, seg, p.Disp)
	if base == nil {
		r.size = p.size
	}
	return r, nil
}

func (p *Ptr) String() string {
	var b strings.Builder
	if p.Seg != nil {
		b.WriteString(p.Seg.String())
		b.WriteString(":")
	}
	if p.Base == nil {
		b.WriteString(fmt.Sprintf("%#x", uint64(p.Disp)))
		return b.String()
	}
	b.WriteString(p.Base.String())
	switch {
	case p.Disp > 0:
		b.WriteString(fmt.Sprintf("+%#x", p.Disp))
	case p.Disp < 0:
		b.WriteString(fmt.Sprintf("-%#x", -p.Disp))
	}
	return b.String()
}

// Mod 一次可能产生别名的内存写
type Mod struct {
	A      *Ptr
	V      Expr
	Endian Endian
}

// Mem 内存读取表达式
// Mods 非空时表示：先读取A处的初始值，再依次叠加Mods中的写入
type Mem struct {
	A      *Ptr
	Endian Endian
	Mods   []Mod
	size   uint
	sf     bool
}

// NewMem 小端内存读取
func NewMem(addr Expr, size uint) *Mem {
	return NewMemE(addr, size, LittleEndian, 0)
}

// NewMemE 指定字节序和偏移的内存读取
func NewMemE(addr Expr, size uint, endian Endian, disp int64) *Mem {
	if size == 0 {
		panic(&SizeMismatchError{Op: "mem", Left: size, Right: 8})
	}
	if endian != BigEndian {
		endian = LittleEndian
	}
	p := AsPtr(addr)
	if disp != 0 {
		p = p.Displace(disp)
	}
	return &Mem{A: p, Endian: endian, size: size}
}

// WithMods 返回携带别名写入的拷贝
func (m *Mem) WithMods(mods []Mod) *Mem {
	r := *m
	r.Mods = mods
	return &r
}

func (m *Mem) Kind() Kind   { return KindMem }
func (m *Mem) Size() uint   { return m.size }
func (m *Mem) Signed() bool { return m.sf }

func (m *Mem) Depth() int {
	d := m.A.Depth()
	for _, mod := range m.Mods {
		if x := maxDepth(mod.A, mod.V); x > d {
			d = x
		}
	}
	return d + 1
}

func (m *Mem) Simplify() Expr {
	r := *m
	r.A = m.A.Simplify().(*Ptr)
	return &r
}

func (m *Mem) String() string {
	var b strings.Builder
	b.WriteString("M")
	b.WriteString(strconv.Itoa(int(m.size)))
	if len(m.Mods) > 0 {
		b.WriteString("$")
		b.WriteString(strconv.Itoa(len(m.Mods)))
	}
	if m.Endian == BigEndian {
		b.WriteString(">")
	}
	b.WriteString("(")
	b.WriteString(m.A.String())
	b.WriteString(")")
	return b.String()
}

func (m *Mem) Eval(env Env) (Expr, error) {
	if env == nil {
		return m, nil
	}
	p, err := m.A.eval(env)
	if err != nil {
		return nil, err
	}
	v, err := env.Load(p, m.size, m.Endian)
	if err != nil {
		return nil, err
	}
	for _, mod := range m.Mods {
		q, err := mod.A.eval(env)
		if err != nil {
			return nil, err
		}
		mv, err := mod.V.Eval(env)
		if err != nil {
			return nil, err
		}
		v = ApplyMod(p, m.size, m.Endian, v, q, mv)
	}
	if m.sf {
		v = AsSigned(v)
	}
	return v, nil
}

// Relation 两段内存区域的关系
type Relation int

const (
	RelUnknown Relation = iota
	RelDisjoint
	RelSame
	RelOverlap
)

// SameZone 两个指针是否位于同一个内存区域（相同基址与段）
func SameZone(p, q *Ptr) bool {
	return Equal(p.Base, q.Base) && Equal(p.Seg, q.Seg)
}

// Relate 判断[p, p+n)与[q, q+k)的关系，n、k为字节数
func Relate(p *Ptr, n int64, q *Ptr, k int64) Relation {
	if !SameZone(p, q) {
		return RelUnknown
	}
	switch {
	case p.Disp == q.Disp && n == k:
		return RelSame
	case p.Disp+n <= q.Disp || q.Disp+k <= p.Disp:
		return RelDisjoint
	}
	return RelOverlap
}

// ApplyMod 在p处size位的值cur上叠加一次写入(q, v)
func ApplyMod(p *Ptr, size uint, endian Endian, cur Expr, q *Ptr, v Expr) Expr {
	n, k := int64(size/8), int64(v.Size()/8)
	switch Relate(p, n, q, k) {
	case RelDisjoint:
		return cur
	case RelSame:
		if v.Size() == size {
			return v
		}
	case RelOverlap:
		off := q.Disp - p.Disp
		lo, hi := off, off+k
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		w := uint(hi-lo) * 8
		var cpos, vpos uint
		if endian == BigEndian {
			cpos = uint(n-hi) * 8
			vpos = uint(k-(hi-off)) * 8
		} else {
			cpos = uint(lo) * 8
			vpos = uint(lo-off) * 8
		}
		return Overlay(cur, cpos, Slice(v, vpos, w))
	case RelUnknown:
		if v.Size() == size {
			return Ite(Eq(p.Addr(), q.Addr()), v, cur)
		}
	}
	return NewTop(size)
}
