package cfg

import (
	"fmt"

	"gbinsym/internal/decoder"
)

// Func 函数：从入口出发，不经过调用边能到达的节点
type Func struct {
	Name  string
	Entry *Node
	Nodes []*Node
	Edges []*Edge
	Calls []*Func
}

func (f *Func) String() string {
	return fmt.Sprintf("%s: %d blocks, %d edges", f.Name, len(f.Nodes), len(f.Edges))
}

// Has 节点是否属于函数
func (f *Func) Has(n *Node) bool {
	for _, x := range f.Nodes {
		if x == n {
			return true
		}
	}
	return false
}

// opens 调用边指向带FUNC_START的块时开始新函数
func opens(e *Edge) bool {
	return e.Kind == EdgeCall && e.Dst.Block.Has(decoder.FuncStart)
}

// Group 从entry开始把图划分为函数，第一个是入口函数
func Group(g *Graph, entry uint64) []*Func {
	root, ok := g.Node(entry)
	if !ok {
		return nil
	}
	funcs := make(map[*Node]*Func)
	var order []*Func
	var open func(n *Node) *Func
	open = func(n *Node) *Func {
		if f, ok := funcs[n]; ok {
			return f
		}
		f := &Func{Name: fmt.Sprintf("sub_%x", n.Address()), Entry: n}
		funcs[n] = f
		order = append(order, f)
		seen := map[*Node]bool{n: true}
		queue := []*Node{n}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			f.Nodes = append(f.Nodes, cur)
			if cur.Block.Has(decoder.FuncEnd) {
				continue
			}
			for _, e := range cur.out {
				if opens(e) {
					continue
				}
				f.Edges = append(f.Edges, e)
				if !seen[e.Dst] {
					seen[e.Dst] = true
					queue = append(queue, e.Dst)
				}
			}
		}
		for _, cur := range f.Nodes {
			for _, e := range cur.out {
				if opens(e) {
					f.Calls = append(f.Calls, open(e.Dst))
				}
			}
		}
		return f
	}
	open(root)
	return order
}
