package cfg

import (
	"io"

	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
	"gbinsym/internal/memory"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LSweep 线性扫描
type LSweep struct {
	prog  Program
	graph *Graph
}

func NewLSweep(p Program) *LSweep {
	return &LSweep{prog: p}
}

// InstructionIterator 逐条解码，结束时Next返回io.EOF
type InstructionIterator struct {
	prog Program
	cur  uint64
	done bool
}

// IterInstructions 从addr（默认为程序入口）开始的指令
func (s *LSweep) IterInstructions(addr ...uint64) *InstructionIterator {
	return &InstructionIterator{prog: s.prog, cur: entry(s.prog, addr)}
}

// Next 未映射的地址和结束指令之后返回io.EOF，无法解码时返回DecodeError
func (it *InstructionIterator) Next() (*decoder.Instruction, error) {
	if it.done {
		return nil, io.EOF
	}
	ins, err := fetch(it.prog, it.cur)
	if err != nil {
		it.done = true
		var ue *memory.UnmappedError
		if errors.As(err, &ue) {
			return nil, io.EOF
		}
		return nil, err
	}
	it.cur = ins.Next()
	if cpu := it.prog.CPU(); cpu.IsEnd != nil && cpu.IsEnd(ins) {
		it.done = true
	}
	return ins, nil
}

// BlockIterator 逐块扫描
type BlockIterator struct {
	instrs *InstructionIterator
	err    error
}

// IterBlocks 从addr（默认为程序入口）开始的块
func (s *LSweep) IterBlocks(addr ...uint64) *BlockIterator {
	return &BlockIterator{instrs: s.IterInstructions(addr...)}
}

// Next 收集指令直到控制流指令，带延迟槽时再加一条。
// 扫描中途出错时先返回已收集的指令组成的块，下一次调用返回错误
func (it *BlockIterator) Next() (*Block, error) {
	if it.err != nil {
		return nil, it.err
	}
	var instrs []*decoder.Instruction
	for {
		ins, err := it.instrs.Next()
		if err != nil {
			it.err = err
			break
		}
		instrs = append(instrs, ins)
		if ins.Type != decoder.TypeControlFlow {
			continue
		}
		if ins.Delayed() {
			slot, err := it.instrs.Next()
			if err != nil {
				it.err = err
				break
			}
			instrs = append(instrs, slot)
		}
		break
	}
	if len(instrs) == 0 {
		return nil, it.err
	}
	return NewBlock(instrs), nil
}

// targets 在以块地址为pc的新mapper中计算块的常量后继
func targets(b *Block) ([]branch, error) {
	m, err := b.Mapper()
	if err != nil {
		return nil, err
	}
	pc := b.Last().CPU().PC
	m, err = m.Use(map[*expr.Reg]uint64{pc: b.Address()})
	if err != nil {
		return nil, err
	}
	var res []branch
	for _, t := range branches(m.Get(pc), nil) {
		if _, ok := t.target.(*expr.Cst); ok {
			res = append(res, t)
		}
	}
	return res, nil
}

// GetCFG 扫描全部块后按常量跳转目标连边，再划分函数
func (s *LSweep) GetCFG(addr ...uint64) ([]*Func, error) {
	start := entry(s.prog, addr)
	g := NewGraph()
	it := s.IterBlocks(start)
	var blocks []*Block
	for {
		b, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			var de *decoder.DecodeError
			if errors.As(err, &de) && len(blocks) > 0 {
				log.Warnf("lsweep stopped: %v", err)
				break
			}
			return nil, err
		}
		if _, _, err := g.Add(b); err != nil {
			log.Warnf("lsweep: %v", err)
			continue
		}
		blocks = append(blocks, b)
	}
	for _, b := range blocks {
		ts, err := targets(b)
		if err != nil {
			log.Warnf("lsweep: %v", err)
			continue
		}
		src, _ := g.Locate(b.Last().Address)
		kind := EdgeFlow
		if b.Has(decoder.FuncCall) {
			kind = EdgeCall
			if ret, ok := g.Node(b.End()); ok {
				g.Link(src, ret, nil, EdgeFlow)
			}
		}
		for _, br := range ts {
			t := br.address()
			dst, ok := g.Node(t)
			if !ok {
				c, found := g.Locate(t)
				if !found {
					log.Debugf("lsweep: target %#x outside swept code", t)
					continue
				}
				if dst, err = g.Split(c, t); err != nil {
					log.Warnf("lsweep: %v", err)
					continue
				}
				if src == c && b.Last().Address >= t {
					src = dst
				}
			}
			g.Link(src, dst, br.cond, kind)
		}
	}
	s.graph = g
	return Group(g, start), nil
}

// Graph 最近一次GetCFG构建的图
func (s *LSweep) Graph() *Graph {
	return s.graph
}
