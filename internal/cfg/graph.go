package cfg

import (
	"fmt"
	"strings"

	"gbinsym/internal/expr"
)

// EdgeKind 边的类别
type EdgeKind int

const (
	EdgeFlow EdgeKind = iota
	EdgeCall
)

// Edge 有向边，Cond为空表示无条件
type Edge struct {
	Src, Dst *Node
	Cond     expr.Expr
	Kind     EdgeKind
}

func (e *Edge) String() string {
	s := fmt.Sprintf("%s -> %s", e.Src.Name(), e.Dst.Name())
	if e.Kind == EdgeCall {
		s += " [call]"
	}
	if e.Cond != nil {
		s += fmt.Sprintf(" [%s]", e.Cond)
	}
	return s
}

// Node 图中的一个块
type Node struct {
	Block *Block
	in    []*Edge
	out   []*Edge
}

func (n *Node) Address() uint64 {
	return n.Block.Address()
}

func (n *Node) Name() string {
	return fmt.Sprintf("%#x", n.Address())
}

func (n *Node) In() []*Edge {
	return n.in
}

func (n *Node) Out() []*Edge {
	return n.out
}

// Graph 控制流图，块之间没有重叠
type Graph struct {
	index *Index
	edges int
}

func NewGraph() *Graph {
	return &Graph{index: NewIndex()}
}

// Len 节点数
func (g *Graph) Len() int {
	return g.index.Len()
}

// Size 边数
func (g *Graph) Size() int {
	return g.edges
}

// Index 支撑结构
func (g *Graph) Index() *Index {
	return g.index.Snapshot()
}

// Node 从addr开始的节点
func (g *Graph) Node(addr uint64) (*Node, bool) {
	return g.index.Get(addr)
}

// Locate 包含addr的节点
func (g *Graph) Locate(addr uint64) (*Node, bool) {
	return g.index.Locate(addr)
}

// Nodes 按地址排列的节点
func (g *Graph) Nodes() []*Node {
	return g.index.Nodes()
}

// Edges 所有边
func (g *Graph) Edges() []*Edge {
	var res []*Edge
	for _, n := range g.index.Nodes() {
		res = append(res, n.out...)
	}
	return res
}

// Add 加入块并处理地址冲突，返回对应的节点以及节点是否是新的。
// 块起点落在已有块中间时切分已有块；块跨过已有块的起点时截断新块
func (g *Graph) Add(b *Block) (*Node, bool, error) {
	addr := b.Address()
	if n, ok := g.index.Get(addr); ok {
		return n, false, nil
	}
	if c, ok := g.index.Locate(addr); ok {
		n, err := g.Split(c, addr)
		return n, false, err
	}
	if nx, ok := g.index.After(addr, b.End()); ok {
		pre, _, err := b.Cut(nx.Address())
		if err != nil {
			return nil, false, err
		}
		n := &Node{Block: pre}
		g.index.Set(n)
		g.Link(n, nx, nil, EdgeFlow)
		return n, true, nil
	}
	n := &Node{Block: b}
	g.index.Set(n)
	return n, true, nil
}

// Split 在addr处切分节点c，c保留前半部分，出边转移到后半部分
func (g *Graph) Split(c *Node, addr uint64) (*Node, error) {
	pre, suf, err := c.Block.Cut(addr)
	if err != nil {
		return nil, err
	}
	s := &Node{Block: suf, out: c.out}
	for _, e := range s.out {
		e.Src = s
	}
	c.Block, c.out = pre, nil
	g.index.Set(s)
	g.Link(c, s, nil, EdgeFlow)
	return s, nil
}

// Link 加边，已存在时返回已有的边和false
func (g *Graph) Link(src, dst *Node, cond expr.Expr, kind EdgeKind) (*Edge, bool) {
	for _, e := range src.out {
		if e.Dst == dst && e.Kind == kind && condEqual(e.Cond, cond) {
			return e, false
		}
	}
	e := &Edge{Src: src, Dst: dst, Cond: cond, Kind: kind}
	src.out = append(src.out, e)
	dst.in = append(dst.in, e)
	g.edges++
	return e, true
}

func condEqual(a, b expr.Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return expr.Equal(a, b)
}

func (g *Graph) String() string {
	var builder strings.Builder
	for _, n := range g.Nodes() {
		builder.WriteString(n.Block.String())
		for _, e := range n.out {
			builder.WriteString("  " + e.String() + "\n")
		}
	}
	return builder.String()
}
