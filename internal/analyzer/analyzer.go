// Package analyzer 装载映像、构建控制流图并在每个块上运行分析模块
package analyzer

import (
	"fmt"
	"time"

	"gbinsym/internal/cfg"
	"gbinsym/internal/config"
	"gbinsym/internal/expr"
	"gbinsym/internal/finding"
	"gbinsym/internal/loader"
	"gbinsym/internal/mapper"
	"gbinsym/internal/module"
	"gbinsym/internal/session"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Analyzer struct {
	moduleManager *module.ModuleManager
	disassembler  *Disassembler
	conf          config.Analysis
	session       *session.Session

	// Results 每个映像的探索结果，与GetPrograms的顺序一致
	Results []*Result
}

// Result 一个映像的分析结果
type Result struct {
	Program *loader.Raw
	Funcs   []*cfg.Func
	Graph   *cfg.Graph
	Image   string // 会话中的映像哈希
}

func NewAnalyzer(mm *module.ModuleManager, disassembler *Disassembler, conf config.Analysis) *Analyzer {
	ma := &Analyzer{
		moduleManager: mm,
		disassembler:  disassembler,
		conf:          conf,
	}
	return ma
}

// SetSession 设置后结果保存在会话中
func (ma *Analyzer) SetSession(s *session.Session) {
	ma.session = s
}

// 探索每个映像
// 收集finding
func (ma *Analyzer) Run() ([]*finding.Finding, error) {
	programs := ma.disassembler.GetPrograms()
	if len(programs) == 0 {
		return nil, fmt.Errorf("no program found")
	}
	Apply(ma.conf)

	startTime := time.Now()
	ma.Results = nil
	for _, p := range programs {
		log.Infof("analyzing %s image at %#x (%d bytes)", p.CPU().Name, p.Base(), len(p.Data()))
		res, err := ma.analyze(p)
		if err != nil {
			return nil, errors.Wrapf(err, "analyze image at %#x", p.Base())
		}
		ma.Results = append(ma.Results, res)
	}
	findings := ma.moduleManager.Findings()
	log.Infof("total findings found: %d", len(findings))
	log.Infof("analyze time used: %.3fs", time.Since(startTime).Seconds())
	return findings, nil
}

func (ma *Analyzer) analyze(p *loader.Raw) (*Result, error) {
	explorer, err := NewExplorer(p, ma.conf)
	if err != nil {
		return nil, err
	}
	funcs, err := explorer.GetCFG()
	if err != nil {
		return nil, errors.Wrap(err, "GetCFG")
	}
	g := explorer.Graph()
	log.Infof("%s: %d functions, %d blocks, %d edges", ma.conf.Strategy, len(funcs), g.Len(), g.Size())

	res := &Result{Program: p, Funcs: funcs, Graph: g}
	if ma.session != nil {
		if res.Image, err = ma.session.PutImage(p); err != nil {
			return nil, err
		}
		if err := ma.session.PutCFG(res.Image, ma.conf.Strategy, g); err != nil {
			return nil, err
		}
	}

	owner := make(map[*cfg.Node]*cfg.Func)
	for _, fn := range funcs {
		for _, n := range fn.Nodes {
			if _, ok := owner[n]; !ok {
				owner[n] = fn
			}
		}
	}
	for _, n := range g.Nodes() {
		m, err := ma.executeNode(owner[n], n)
		if err != nil {
			return nil, err
		}
		if ma.session != nil && m != nil {
			if err := ma.session.PutMapper(res.Image, n.Name(), m); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

// executeNode 逐条执行块中的指令，在指令前后调用hook
func (ma *Analyzer) executeNode(fn *cfg.Func, n *cfg.Node) (*mapper.Mapper, error) {
	seq := n.Block.Sequence()
	if len(seq) == 0 {
		return nil, nil
	}
	cpu := seq[0].CPU()
	m := mapper.New()
	if err := m.Set(cpu.PC, expr.Const(n.Address(), cpu.PC.Size())); err != nil {
		return nil, errors.Wrapf(err, "block %s", n.Name())
	}
	for _, ins := range seq {
		st := &module.State{Func: fn, Node: n, Instruction: ins, Mapper: m}
		if _, err := ma.moduleManager.Pre(st); err != nil {
			return nil, err
		}
		if err := ins.Execute(m); err != nil {
			// 指令出错只结束这个块
			log.Warnf("block %s: %v", n.Name(), err)
			return m, nil
		}
		if _, err := ma.moduleManager.Post(st); err != nil {
			return nil, err
		}
	}
	return m, nil
}
