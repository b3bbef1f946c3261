package cfg

import "github.com/benbjohnson/immutable"

// Index 按起始地址索引的节点，持久化有序表，Snapshot是O(1)的
type Index struct {
	nodes *immutable.SortedMap
}

func NewIndex() *Index {
	return &Index{nodes: immutable.NewSortedMap(&uint64Comparer{})}
}

func (x *Index) Len() int {
	return x.nodes.Len()
}

func (x *Index) Get(addr uint64) (*Node, bool) {
	v, ok := x.nodes.Get(addr)
	if !ok {
		return nil, false
	}
	return v.(*Node), true
}

func (x *Index) Set(n *Node) {
	x.nodes = x.nodes.Set(n.Address(), n)
}

func (x *Index) Delete(addr uint64) {
	x.nodes = x.nodes.Delete(addr)
}

// Snapshot 当前内容的只读副本
func (x *Index) Snapshot() *Index {
	return &Index{nodes: x.nodes}
}

// Locate 包含addr的节点
func (x *Index) Locate(addr uint64) (*Node, bool) {
	itr := x.nodes.Iterator()
	if itr.Seek(addr); itr.Done() {
		itr.Last()
	}
	for !itr.Done() {
		k, v := itr.Prev()
		if k == nil {
			break
		}
		n := v.(*Node)
		if n.Address() <= addr && addr < n.Block.End() {
			return n, true
		}
		if n.Block.End() <= addr {
			break
		}
	}
	return nil, false
}

// After 起始地址落在(lo, hi)中的第一个节点
func (x *Index) After(lo, hi uint64) (*Node, bool) {
	itr := x.nodes.Iterator()
	itr.Seek(lo + 1)
	if itr.Done() {
		return nil, false
	}
	k, v := itr.Next()
	if k.(uint64) >= hi {
		return nil, false
	}
	return v.(*Node), true
}

// Nodes 按地址排列
func (x *Index) Nodes() []*Node {
	res := make([]*Node, 0, x.nodes.Len())
	itr := x.nodes.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		res = append(res, v.(*Node))
	}
	return res
}

type uint64Comparer struct{}

func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
