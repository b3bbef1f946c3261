package memory

import (
	"sort"

	"gbinsym/internal/expr"

	"github.com/benbjohnson/immutable"
)

// Zone 同一基址下的内存区域，对象按偏移保存在持久化有序表中，克隆是O(1)的
type Zone struct {
	Base expr.Expr
	Seg  expr.Expr
	objs *immutable.SortedMap
}

func newZone(base, seg expr.Expr) *Zone {
	return &Zone{Base: base, Seg: seg, objs: immutable.NewSortedMap(&int64Comparer{})}
}

func (z *Zone) clone() *Zone {
	r := *z
	return &r
}

// Key 区域的名字，具体内存为空字符串
func (z *Zone) Key() string {
	return zoneKey(z.Base, z.Seg)
}

func zoneKey(base, seg expr.Expr) string {
	var k string
	if seg != nil {
		k = seg.String() + ":"
	}
	if base != nil {
		k += base.String()
	}
	return k
}

// Len 对象个数
func (z *Zone) Len() int {
	return z.objs.Len()
}

// locate 查找包含addr的对象
func (z *Zone) locate(addr int64) *Object {
	itr := z.objs.Iterator()
	if itr.Seek(addr); itr.Done() {
		itr.Last()
	}
	for !itr.Done() {
		k, v := itr.Prev()
		if k == nil {
			break
		}
		o := v.(*Object)
		if o.contains(addr) {
			return o
		}
		if o.End() <= addr {
			break
		}
	}
	return nil
}

// overlapping 与[lo, hi)相交的对象，按地址排列
func (z *Zone) overlapping(lo, hi int64) []*Object {
	var res []*Object
	first := z.locate(lo)
	if first != nil {
		res = append(res, first)
	}
	itr := z.objs.Iterator()
	itr.Seek(lo)
	for !itr.Done() {
		k, v := itr.Next()
		if k.(int64) >= hi {
			break
		}
		if first != nil && k.(int64) == first.VAddr {
			continue
		}
		res = append(res, v.(*Object))
	}
	return res
}

// Objects 按地址排列的所有对象
func (z *Zone) Objects() []*Object {
	res := make([]*Object, 0, z.objs.Len())
	itr := z.objs.Iterator()
	for !itr.Done() {
		_, v := itr.Next()
		res = append(res, v.(*Object))
	}
	return res
}

func (z *Zone) write(o *Object) {
	lo, hi := o.VAddr, o.End()
	for _, old := range z.overlapping(lo, hi) {
		z.objs = z.objs.Delete(old.VAddr)
		if old.VAddr < lo {
			p := old.cut(old.VAddr, lo)
			z.objs = z.objs.Set(p.VAddr, p)
		}
		if old.End() > hi {
			s := old.cut(hi, old.End())
			z.objs = z.objs.Set(s.VAddr, s)
		}
	}
	if o.Value == nil {
		o = z.coalesce(o)
	}
	z.objs = z.objs.Set(o.VAddr, o)
}

// coalesce 合并相邻的字节对象
func (z *Zone) coalesce(o *Object) *Object {
	if prev := z.locate(o.VAddr - 1); prev != nil && prev.Value == nil && prev.End() == o.VAddr {
		z.objs = z.objs.Delete(prev.VAddr)
		data := make([]byte, 0, len(prev.Data)+len(o.Data))
		data = append(append(data, prev.Data...), o.Data...)
		o = &Object{VAddr: prev.VAddr, Data: data, Endian: o.Endian}
	}
	if v, ok := z.objs.Get(o.End()); ok {
		next := v.(*Object)
		if next.Value == nil {
			z.objs = z.objs.Delete(next.VAddr)
			data := make([]byte, 0, len(o.Data)+len(next.Data))
			data = append(append(data, o.Data...), next.Data...)
			o = &Object{VAddr: o.VAddr, Data: data, Endian: o.Endian}
		}
	}
	return o
}

// read 读取[vaddr, vaddr+n)，未映射部分以空洞表示
func (z *Zone) read(vaddr, n int64) []Fragment {
	end := vaddr + n
	cur := vaddr
	var res []Fragment
	for _, o := range z.overlapping(vaddr, end) {
		if o.VAddr > cur {
			res = append(res, Fragment{VAddr: cur, Len: o.VAddr - cur})
		}
		p := o.cut(cur, end)
		res = append(res, Fragment{VAddr: p.VAddr, Len: p.Len(), Data: p.Data, Value: p.Value, Endian: p.Endian})
		cur = p.End()
	}
	if cur < end {
		res = append(res, Fragment{VAddr: cur, Len: end - cur})
	}
	return res
}

// int64Comparer 实现 immutable.Comparer
type int64Comparer struct{}

func (c *int64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(int64), b.(int64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}

func sortedZones(zones map[string]*Zone) []*Zone {
	res := make([]*Zone, 0, len(zones))
	for _, z := range zones {
		res = append(res, z)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key() < res[j].Key() })
	return res
}
