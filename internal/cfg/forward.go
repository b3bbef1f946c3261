package cfg

import (
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"
	"gbinsym/internal/strategy"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Order 探索顺序
type Order int

const (
	DFS Order = iota
	BFS
)

func (o Order) String() string {
	if o == BFS {
		return "bfs"
	}
	return "dfs"
}

// Policy 探索策略。Lazy时某条路径失败不影响其他路径，否则立即返回错误
type Policy struct {
	Order     Order
	Lazy      bool
	MaxBlocks int
}

// DefaultPolicy 深度优先、lazy
var DefaultPolicy = Policy{Order: DFS, Lazy: true, MaxBlocks: 4096}

// branch 一个可能的跳转目标及其条件
type branch struct {
	target expr.Expr
	cond   expr.Expr
}

func (b branch) address() uint64 {
	return b.target.(*expr.Cst).Uint64()
}

// branches 展开pc的取值：Tst按条件分成两支，集合的每个元素各成一支
func branches(pc, cond expr.Expr) []branch {
	switch x := pc.(type) {
	case *expr.Tst:
		return append(branches(x.T, and(cond, x.Cond)), branches(x.F, and(cond, expr.Not(x.Cond)))...)
	case *expr.Vec:
		if !x.Widened() {
			var res []branch
			for _, it := range x.Items {
				res = append(res, branches(it, cond)...)
			}
			return res
		}
	}
	return []branch{{target: pc, cond: cond}}
}

func and(a, b expr.Expr) expr.Expr {
	if a == nil {
		return b
	}
	return expr.And(a, b)
}

// task 待探索的目标
type task struct {
	addr   uint64
	parent *Node
	from   uint64 // 父块中跳转指令的地址
	cond   expr.Expr
	kind   EdgeKind
	m      *mapper.Mapper
}

// Forward 从入口出发沿常量跳转目标探索。
// fforward在以块地址为pc的新mapper中计算目标；
// lforward在父块的mapper中计算，能解析经由寄存器或栈传递的目标
type Forward struct {
	prog   Program
	policy Policy
	linear bool
	graph  *Graph

	// Errors 被放弃的路径
	Errors []error
}

// FForward 只看单个块的探索
func FForward(p Program, policy Policy) *Forward {
	return &Forward{prog: p, policy: policy}
}

// LForward 沿路径传递mapper的探索
func LForward(p Program, policy Policy) *Forward {
	return &Forward{prog: p, policy: policy, linear: true}
}

// Graph 最近一次GetCFG构建的图
func (f *Forward) Graph() *Graph {
	return f.graph
}

func (f *Forward) name() string {
	if f.linear {
		return "lforward"
	}
	return "fforward"
}

// GetCFG 从addr（默认为程序入口）开始探索并划分函数
func (f *Forward) GetCFG(addr ...uint64) ([]*Func, error) {
	start := entry(f.prog, addr)
	f.graph = NewGraph()
	f.Errors = nil
	work, err := strategy.New[*task](f.policy.Order.String())
	if err != nil {
		return nil, err
	}
	root := &task{addr: start}
	if f.linear {
		root.m = mapper.New()
	}
	if err := work.Push(root); err != nil {
		return nil, err
	}
	for work.HasNext() {
		if f.policy.MaxBlocks > 0 && f.graph.Len() >= f.policy.MaxBlocks {
			log.Warnf("%s: stopped after %d blocks", f.name(), f.graph.Len())
			break
		}
		t, err := work.Pop()
		if err != nil {
			return nil, err
		}
		children, err := f.step(t)
		if err != nil {
			if f.graph.Len() == 0 || !f.policy.Lazy {
				return nil, err
			}
			log.Warnf("%s: %v", f.name(), err)
			f.Errors = append(f.Errors, err)
		}
		if err := work.Push(children...); err != nil {
			return nil, err
		}
	}
	log.Infof("%s: %d blocks, %d edges", f.name(), f.graph.Len(), f.graph.Size())
	return Group(f.graph, start), nil
}

// node 返回addr处的节点，必要时解码新块或切分已有块
func (f *Forward) node(addr uint64) (*Node, bool, error) {
	if n, ok := f.graph.Node(addr); ok {
		return n, false, nil
	}
	if c, ok := f.graph.Locate(addr); ok {
		n, err := f.graph.Split(c, addr)
		return n, false, err
	}
	b, err := NewLSweep(f.prog).IterBlocks(addr).Next()
	if err != nil {
		return nil, false, errors.Wrapf(err, "block at %#x", addr)
	}
	return f.graph.Add(b)
}

// step 探索一个目标，返回新的目标
func (f *Forward) step(t *task) ([]*task, error) {
	n, fresh, err := f.node(t.addr)
	if err != nil {
		var me *MisalignedError
		if errors.As(err, &me) {
			log.Warnf("%s: skip target: %v", f.name(), err)
			return nil, nil
		}
		return nil, err
	}
	linked := false
	if t.parent != nil {
		// 父块可能已被切分，边从包含跳转指令的部分出发
		src := t.parent
		if p, ok := f.graph.Locate(t.from); ok {
			src = p
		}
		_, linked = f.graph.Link(src, n, t.cond, t.kind)
	}
	if !fresh && !linked {
		return nil, nil
	}
	// 截断的块只有到下一块的边
	if n.Block.Has(decoder.MiscTruncated) {
		return nil, nil
	}
	return f.successors(n, t)
}

func (f *Forward) successors(n *Node, t *task) ([]*task, error) {
	b := n.Block
	mb, err := b.Mapper()
	if err != nil {
		return nil, err
	}
	pc := f.prog.CPU().PC
	var m *mapper.Mapper
	if f.linear {
		pm := t.m.Clone()
		if err := pm.Set(pc, expr.Const(b.Address(), pc.Size())); err != nil {
			return nil, err
		}
		m, err = mb.Compose(pm)
	} else {
		m, err = mb.Use(map[*expr.Reg]uint64{pc: b.Address()})
	}
	if err != nil {
		return nil, err
	}
	var res []*task
	cpu := f.prog.CPU()
	if b.Has(decoder.FuncEnd) || (cpu.IsEnd != nil && cpu.IsEnd(b.Instructions[len(b.Instructions)-1])) {
		return nil, nil
	}
	last := b.Last()
	kind := EdgeFlow
	if b.Has(decoder.FuncCall) {
		kind = EdgeCall
		res = append(res, &task{addr: b.End(), parent: n, from: last.Address, kind: EdgeFlow, m: m})
	}
	for _, br := range branches(m.Get(pc), nil) {
		switch x := br.target.(type) {
		case *expr.Cst:
			child := &task{addr: x.Uint64(), parent: n, from: last.Address, cond: br.cond, kind: kind}
			if f.linear {
				cm := m
				if br.cond != nil {
					if cm, err = m.Assume(br.cond); err != nil {
						return nil, err
					}
				}
				child.m = cm
			}
			res = append(res, child)
		case *expr.Ext:
			log.Debugf("%s: %s reaches %s", f.name(), n.Name(), x)
		default:
			return res, &TopReachedError{Address: last.Address, Target: br.target}
		}
	}
	return res, nil
}
