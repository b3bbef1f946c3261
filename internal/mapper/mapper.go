// Package mapper 符号状态：位置（寄存器、内存）到表达式的有序映射，记录每个位置的历史值
package mapper

import (
	"fmt"
	"strings"

	"gbinsym/internal/expr"
	"gbinsym/internal/memory"

	"github.com/benbjohnson/immutable"
	"github.com/pkg/errors"
)

// InvalidLocationError 不能作为赋值目标的表达式
type InvalidLocationError struct {
	Loc expr.Expr
}

func (e *InvalidLocationError) Error() string {
	return fmt.Sprintf("invalid location %s (%s)", e.Loc, e.Loc.Kind())
}

// Item 一个位置及其当前值
type Item struct {
	Loc   expr.Expr
	Value expr.Expr
}

// Mapper 符号状态，克隆代价与位置数量无关
type Mapper struct {
	order *immutable.List // 首次写入的顺序
	index *immutable.Map  // 位置 -> []expr.Expr，最后一个为当前值
	mem   *memory.Map
	conds []expr.Expr
	traps []Trap

	AssumeNoAliasing bool
}

// DefaultAssumeNoAliasing New创建的mapper的AssumeNoAliasing初值
var DefaultAssumeNoAliasing bool

// New 创建空的mapper
func New() *Mapper {
	return &Mapper{
		order: immutable.NewList(),
		index: immutable.NewMap(&exprHasher{}),
		mem:   memory.New(),

		AssumeNoAliasing: DefaultAssumeNoAliasing,
	}
}

// Clone 克隆
func (m *Mapper) Clone() *Mapper {
	r := *m
	r.mem = m.mem.Clone()
	r.conds = m.conds[:len(m.conds):len(m.conds)]
	r.traps = m.traps[:len(m.traps):len(m.traps)]
	return &r
}

// Len 位置数量
func (m *Mapper) Len() int {
	return m.order.Len()
}

// Memory 内存模型
func (m *Mapper) Memory() *memory.Map {
	return m.mem
}

// Conds 路径条件
func (m *Mapper) Conds() []expr.Expr {
	return m.conds
}

// Items 按首次写入顺序返回所有位置及其当前值
func (m *Mapper) Items() []Item {
	res := make([]Item, 0, m.order.Len())
	itr := m.order.Iterator()
	for !itr.Done() {
		_, k := itr.Next()
		loc := k.(expr.Expr)
		res = append(res, Item{Loc: loc, Value: m.current(loc)})
	}
	return res
}

// History 位置的历史值，最早的在前
func (m *Mapper) History(loc expr.Expr) []expr.Expr {
	if v, ok := m.index.Get(loc); ok {
		return v.([]expr.Expr)
	}
	return nil
}

// Has 是否写入过该位置
func (m *Mapper) Has(loc expr.Expr) bool {
	_, ok := m.index.Get(loc)
	return ok
}

func (m *Mapper) current(loc expr.Expr) expr.Expr {
	h := m.History(loc)
	if len(h) == 0 {
		return nil
	}
	return h[len(h)-1]
}

// Lookup 实现 expr.Env，未写入的寄存器返回其本身（初始状态）
func (m *Mapper) Lookup(r *expr.Reg) expr.Expr {
	if v := m.current(r); v != nil {
		return v
	}
	return r
}

// Load 实现 expr.Env
func (m *Mapper) Load(p *expr.Ptr, size uint, endian expr.Endian) (expr.Expr, error) {
	return m.readMem(p, size, endian)
}

func (m *Mapper) readMem(p *expr.Ptr, size uint, endian expr.Endian) (expr.Expr, error) {
	nb := int64((size + 7) / 8)
	frags, err := m.mem.Read(p, nb)
	if err != nil {
		var ue *memory.UnmappedError
		if !errors.As(err, &ue) {
			return nil, err
		}
	}
	parts := make([]expr.Expr, 0, len(frags))
	for _, f := range frags {
		switch {
		case f.Data != nil:
			parts = append(parts, memory.BytesConst(f.Data, endian))
		case f.Value != nil:
			parts = append(parts, f.Value)
		default:
			parts = append(parts, expr.NewMemE(p.Displace(f.VAddr-p.Disp), uint(f.Len*8), endian, 0))
		}
	}
	if endian == expr.BigEndian {
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
	}
	v := expr.Concat(parts...)
	if v.Size() != size {
		v = expr.Slice(v, 0, size)
	}
	if !m.AssumeNoAliasing {
		if mods := m.mem.Aliasing(p, size); mods != nil {
			return expr.NewMemE(p, size, endian, 0).WithMods(mods), nil
		}
	}
	return v, nil
}

// Eval 在当前状态下对表达式求值
func (m *Mapper) Eval(x expr.Expr) (res expr.Expr, err error) {
	defer expr.Recover(&err)
	return x.Eval(m)
}

// MustEval 语义函数使用，出错时panic
func (m *Mapper) MustEval(x expr.Expr) expr.Expr {
	return expr.Must(m.Eval(x))
}

// Get 读取位置的当前值（执行后状态），内存位置按字面地址读取，不再求值
func (m *Mapper) Get(loc expr.Expr) expr.Expr {
	switch l := loc.(type) {
	case *expr.Reg:
		return m.Lookup(l)
	case *expr.Mem:
		v, err := m.readMem(l.A, l.Size(), l.Endian)
		if err != nil {
			return expr.NewTop(l.Size())
		}
		return v
	}
	return m.Read(loc)
}

// Read 在当前状态下求值操作数，出错时返回Top
func (m *Mapper) Read(x expr.Expr) expr.Expr {
	if r, ok := x.(*expr.Reg); ok {
		return m.Lookup(r)
	}
	v, err := m.Eval(x)
	if err != nil {
		return expr.NewTop(x.Size())
	}
	return v
}

// Set 给位置赋值，位置中的内存地址先在当前状态下求值；v不会被求值
func (m *Mapper) Set(loc, v expr.Expr) (err error) {
	defer expr.Recover(&err)
	if loc.Size() != v.Size() {
		return &expr.SizeMismatchError{Op: "set " + loc.String(), Left: loc.Size(), Right: v.Size()}
	}
	switch l := loc.(type) {
	case *expr.Reg:
		return m.setLoc(l, v)
	case *expr.Slc:
		switch l.X.(type) {
		case *expr.Reg, *expr.Mem:
			return m.Set(l.X, expr.Overlay(m.Read(l.X), l.Pos, v))
		}
	case *expr.Mem:
		p, err := l.A.Eval(m)
		if err != nil {
			return err
		}
		return m.setLoc(expr.NewMemE(p, l.Size(), l.Endian, 0), v)
	}
	return &InvalidLocationError{Loc: loc}
}

// MustSet 语义函数使用，出错时panic
func (m *Mapper) MustSet(loc, v expr.Expr) {
	if err := m.Set(loc, v); err != nil {
		panic(err)
	}
}

func (m *Mapper) setLoc(loc, v expr.Expr) error {
	if mem, ok := loc.(*expr.Mem); ok {
		if err := m.mem.Write(mem.A, v, mem.Endian); err != nil {
			return err
		}
	}
	m.record(loc, v)
	return nil
}

// record 只更新位置的历史，不写内存
func (m *Mapper) record(loc, v expr.Expr) {
	var hist []expr.Expr
	if h, ok := m.index.Get(loc); ok {
		hist = h.([]expr.Expr)
	} else {
		m.order = m.order.Append(loc)
	}
	hist = append(hist[:len(hist):len(hist)], v)
	m.index = m.index.Set(loc, hist)
}

// Assume 返回加入路径条件后的拷贝
func (m *Mapper) Assume(conds ...expr.Expr) (*Mapper, error) {
	r := m.Clone()
	for _, c := range conds {
		if c.Size() != 1 {
			return nil, &expr.SizeMismatchError{Op: "assume", Left: c.Size(), Right: 1}
		}
		if cc, ok := c.(*expr.Cst); ok && cc.IsOne() {
			continue
		}
		r.conds = append(r.conds, c)
	}
	return r, nil
}

func (m *Mapper) String() string {
	var b strings.Builder
	for _, it := range m.Items() {
		b.WriteString(fmt.Sprintf("%s <- %s\n", it.Loc, it.Value))
	}
	for _, c := range m.conds {
		b.WriteString(fmt.Sprintf("assume %s\n", c))
	}
	return b.String()
}

// exprHasher 实现 immutable.Hasher
type exprHasher struct{}

func (h *exprHasher) Hash(key interface{}) uint32 {
	x := expr.Hash(key.(expr.Expr))
	return uint32(x ^ x>>32)
}

func (h *exprHasher) Equal(a, b interface{}) bool {
	return expr.Equal(a.(expr.Expr), b.(expr.Expr))
}
