package expr

import (
	"sort"

	"github.com/holiman/uint256"
)

// Node 表达式的可序列化形式
// 解码时直接重建结构，不做化简，编解码前后Equal
type Node struct {
	K       Kind      `cbor:"k"`
	Size    uint      `cbor:"s,omitempty"`
	Sf      bool      `cbor:"sf,omitempty"`
	Name    string    `cbor:"n,omitempty"`
	Val     []byte    `cbor:"v,omitempty"`
	F       float64   `cbor:"f,omitempty"`
	Op      Operator  `cbor:"o,omitempty"`
	Pos     []uint    `cbor:"p,omitempty"`
	Disp    int64     `cbor:"d,omitempty"`
	Endian  Endian    `cbor:"e,omitempty"`
	Type    RegType   `cbor:"t,omitempty"`
	Widened bool      `cbor:"w,omitempty"`
	Subs    []SubNode `cbor:"sub,omitempty"`
	Mods    []ModNode `cbor:"mod,omitempty"`
	Args    []*Node   `cbor:"a,omitempty"`
}

// SubNode 寄存器的命名子段
type SubNode struct {
	Pos   uint   `cbor:"p"`
	Width uint   `cbor:"w"`
	Name  string `cbor:"n"`
}

type ModNode struct {
	A      *Node  `cbor:"a"`
	V      *Node  `cbor:"v"`
	Endian Endian `cbor:"e"`
}

func word(v *uint256.Int) []byte {
	b := v.Bytes32()
	return b[:]
}

// Encode 表达式转为Node，nil对应nil
func Encode(e Expr) *Node {
	if e == nil {
		return nil
	}
	n := &Node{K: e.Kind(), Size: e.Size(), Sf: e.Signed()}
	switch x := e.(type) {
	case *Cst:
		n.Val = word(&x.v)
	case *Sym:
		n.Name, n.Val = x.Name, word(&x.v)
	case *Flt:
		n.F = x.V
	case *Top:
	case *Ext:
		n.Name = x.Name
	case *Reg:
		n.Name, n.Type = x.Name, x.Type
		for k, name := range x.subs {
			n.Subs = append(n.Subs, SubNode{Pos: k.pos, Width: k.width, Name: name})
		}
		sort.Slice(n.Subs, func(i, j int) bool {
			if n.Subs[i].Pos != n.Subs[j].Pos {
				return n.Subs[i].Pos < n.Subs[j].Pos
			}
			return n.Subs[i].Width < n.Subs[j].Width
		})
	case *Slc:
		n.Name, n.Pos, n.Args = x.Name, []uint{x.Pos}, []*Node{Encode(x.X)}
	case *Comp:
		for _, p := range x.Parts {
			n.Pos = append(n.Pos, p.Pos)
			n.Args = append(n.Args, Encode(p.X))
		}
	case *Ptr:
		n.Disp = x.Disp
		n.Args = []*Node{Encode(x.Base), Encode(x.Seg)}
	case *Mem:
		n.Endian = x.Endian
		n.Args = []*Node{Encode(x.A)}
		n.Mods = EncodeMods(x.Mods)
	case *Op:
		n.Op = x.Op
		n.Args = []*Node{Encode(x.L)}
		if x.R != nil {
			n.Args = append(n.Args, Encode(x.R))
		}
	case *Tst:
		n.Args = []*Node{Encode(x.Cond), Encode(x.T), Encode(x.F)}
	case *Vec:
		n.Widened = x.widened
		for _, it := range x.Items {
			n.Args = append(n.Args, Encode(it))
		}
	}
	return n
}

func EncodeMods(mods []Mod) []ModNode {
	if len(mods) == 0 {
		return nil
	}
	res := make([]ModNode, len(mods))
	for i, m := range mods {
		res[i] = ModNode{A: Encode(m.A), V: Encode(m.V), Endian: m.Endian}
	}
	return res
}

func DecodeMods(ns []ModNode) ([]Mod, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	res := make([]Mod, len(ns))
	for i, n := range ns {
		a, err := decodePtr(n.A)
		if err != nil {
			return nil, err
		}
		v, err := Decode(n.V)
		if err != nil {
			return nil, err
		}
		res[i] = Mod{A: a, V: v, Endian: n.Endian}
	}
	return res, nil
}

func decodePtr(n *Node) (*Ptr, error) {
	e, err := Decode(n)
	if err != nil {
		return nil, err
	}
	p, ok := e.(*Ptr)
	if !ok {
		return nil, &UndefinedError{What: "pointer node"}
	}
	return p, nil
}

func (n *Node) args(k int) ([]Expr, error) {
	if k >= 0 && len(n.Args) != k {
		return nil, &UndefinedError{What: n.K.String() + " operands"}
	}
	res := make([]Expr, len(n.Args))
	for i, a := range n.Args {
		x, err := Decode(a)
		if err != nil {
			return nil, err
		}
		res[i] = x
	}
	return res, nil
}

func (n *Node) value() *uint256.Int {
	return new(uint256.Int).SetBytes(n.Val)
}

// Decode Node转回表达式
func Decode(n *Node) (Expr, error) {
	if n == nil {
		return nil, nil
	}
	if (n.Size == 0 && n.K != KindPtr) || n.Size > MaxSize {
		return nil, &SizeMismatchError{Op: "decode " + n.K.String(), Left: n.Size, Right: MaxSize}
	}
	switch n.K {
	case KindCst:
		c := ConstInt(n.value(), n.Size)
		if n.Sf {
			return c.withSign(true), nil
		}
		return c, nil
	case KindSym:
		return &Sym{Name: n.Name, v: *n.value(), size: n.Size}, nil
	case KindFlt:
		return &Flt{V: n.F, size: n.Size}, nil
	case KindTop:
		return NewTop(n.Size), nil
	case KindExt:
		return NewExt(n.Name, n.Size), nil
	case KindReg:
		r := NewRegT(n.Name, n.Size, n.Type)
		r.sf = n.Sf
		for _, s := range n.Subs {
			r.subs[subKey{s.Pos, s.Width}] = s.Name
		}
		return r, nil
	case KindSlc:
		xs, err := n.args(1)
		if err != nil {
			return nil, err
		}
		if len(n.Pos) != 1 || n.Pos[0]+n.Size > xs[0].Size() {
			return nil, &InvalidSliceError{Size: xs[0].Size(), Width: n.Size}
		}
		return &Slc{X: xs[0], Pos: n.Pos[0], Name: n.Name, size: n.Size, sf: n.Sf}, nil
	case KindComp:
		xs, err := n.args(len(n.Pos))
		if err != nil {
			return nil, err
		}
		c := &Comp{Parts: make([]Part, len(xs)), size: n.Size, sf: n.Sf}
		for i, x := range xs {
			c.Parts[i] = Part{Pos: n.Pos[i], X: x}
		}
		c.depth = maxDepth(xs...) + 1
		return c, nil
	case KindPtr:
		xs, err := n.args(2)
		if err != nil {
			return nil, err
		}
		return &Ptr{Base: xs[0], Seg: xs[1], Disp: n.Disp, size: n.Size}, nil
	case KindMem:
		if len(n.Args) != 1 {
			return nil, &UndefinedError{What: "mem operands"}
		}
		a, err := decodePtr(n.Args[0])
		if err != nil {
			return nil, err
		}
		mods, err := DecodeMods(n.Mods)
		if err != nil {
			return nil, err
		}
		return &Mem{A: a, Endian: n.Endian, Mods: mods, size: n.Size, sf: n.Sf}, nil
	case KindOp:
		xs, err := n.args(-1)
		if err != nil {
			return nil, err
		}
		if len(xs) != 1 && len(xs) != 2 {
			return nil, &UndefinedError{What: "op operands"}
		}
		o := &Op{Op: n.Op, L: xs[0], size: n.Size, sf: n.Sf, prop: n.Op.prop() | Props(xs[0])}
		o.depth = xs[0].Depth() + 1
		if len(xs) == 2 {
			o.R = xs[1]
			o.prop |= Props(xs[1])
			o.depth = maxDepth(xs...) + 1
		}
		return o, nil
	case KindTst:
		xs, err := n.args(3)
		if err != nil {
			return nil, err
		}
		return &Tst{Cond: xs[0], T: xs[1], F: xs[2], depth: maxDepth(xs...) + 1}, nil
	case KindVec, KindVecW:
		xs, err := n.args(-1)
		if err != nil {
			return nil, err
		}
		return &Vec{Items: xs, size: n.Size, widened: n.Widened, depth: maxDepth(xs...) + 1}, nil
	}
	return nil, &UndefinedError{What: "node kind " + n.K.String()}
}
