// Package smt 把表达式和mapper翻译为yices位向量约束并求解
package smt

import (
	"fmt"

	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"

	"github.com/pkg/errors"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

// Status 求解结果
type Status int

const (
	Unknown Status = iota
	Sat
	Unsat
)

func (s Status) String() string {
	switch s {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	}
	return "unknown"
}

// Init 初始化yices，使用Solver之前调用一次
func Init() { yices2.Init() }

// Exit 释放yices的全部资源
func Exit() { yices2.Exit() }

// binding AddMapper加入的位置及其取值
type binding struct {
	loc expr.Expr
	v   *BitVec
}

// Solver 一个yices上下文
type Solver struct {
	ctx   yices2.ContextT
	tr    *Translator
	model *Model
	binds []binding
	m     *mapper.Mapper
}

// NewSolver 创建求解器并断言eqns
func NewSolver(eqns ...expr.Expr) (*Solver, error) {
	s := &Solver{
		ctx: yices2.ContextT{},
		tr:  NewTranslator(),
	}
	yices2.InitContext(yices2.ConfigT{}, &s.ctx)
	if err := s.Add(eqns...); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Translator 使用的翻译器
func (s *Solver) Translator() *Translator {
	return s.tr
}

func (s *Solver) assert(bs ...*Bool) error {
	for _, b := range bs {
		if errcode := yices2.AssertFormula(s.ctx, b.GetRaw()); errcode < 0 {
			return fmt.Errorf("assert: %s", yices2.ErrorString())
		}
	}
	s.resetModel()
	return nil
}

func (s *Solver) resetModel() {
	if s.model != nil {
		s.model.Close()
		s.model = nil
	}
}

// Add 断言1位表达式为真
func (s *Solver) Add(eqns ...expr.Expr) error {
	for _, e := range eqns {
		b, err := s.tr.Cond(e)
		if err != nil {
			return errors.Wrapf(err, "add %s", e)
		}
		side := s.tr.Side()
		if len(side) == 0 && b.IsTrue() {
			continue
		}
		if err := s.assert(append(side, b)...); err != nil {
			return err
		}
	}
	return nil
}

// AddMapper 断言m的路径条件，并记录每个位置的取值以便Mapper取样
func (s *Solver) AddMapper(m *mapper.Mapper) error {
	if err := s.Add(m.Conds()...); err != nil {
		return err
	}
	for _, it := range m.Items() {
		v, err := s.tr.BitVec(it.Value)
		if err != nil {
			return errors.Wrapf(err, "location %s", it.Loc)
		}
		// 取值固定在新变量上，不同位置的取样来自同一个模型
		x := s.tr.freshVar(it.Loc.String(), v.Size())
		if err := s.assert(append(s.tr.Side(), x.Eq(v))...); err != nil {
			return err
		}
		s.binds = append(s.binds, binding{loc: it.Loc, v: x})
	}
	s.m = m
	return nil
}

func status(st yices2.SmtStatusT) Status {
	switch st {
	case yices2.StatusSat:
		return Sat
	case yices2.StatusUnsat:
		return Unsat
	}
	return Unknown
}

// Check 检查当前断言是否可满足
func (s *Solver) Check() (Status, error) {
	s.resetModel()
	st := yices2.CheckContext(s.ctx, yices2.ParamT{})
	if st == yices2.StatusError {
		return Unknown, fmt.Errorf("check: %s", yices2.ErrorString())
	}
	return status(st), nil
}

// Model 最近一次可满足检查的模型
func (s *Solver) Model() (*Model, error) {
	if s.model != nil {
		return s.model, nil
	}
	st, err := s.Check()
	if err != nil {
		return nil, err
	}
	if st != Sat {
		return nil, errors.Errorf("no model: %s", st)
	}
	m, err := newModel(s.ctx)
	if err != nil {
		return nil, err
	}
	s.model = m
	return m, nil
}

// Value 表达式在某个模型中的值
func (s *Solver) Value(e expr.Expr) (*expr.Cst, error) {
	if c, ok := e.(*expr.Cst); ok {
		return c, nil
	}
	bv, err := s.tr.BitVec(e)
	if err != nil {
		return nil, err
	}
	side := s.tr.Side()
	if len(side) == 0 {
		if m, err := s.Model(); err == nil {
			if v, err := m.Value(bv); err == nil {
				return expr.ConstInt(v, e.Size()), nil
			}
		}
	}
	// 表达式引入了新变量时在临时作用域中求值
	x := s.tr.freshVar("value", bv.Size())
	yices2.Push(s.ctx)
	defer func() {
		s.resetModel()
		yices2.Pop(s.ctx)
	}()
	if err := s.assert(append(side, x.Eq(bv))...); err != nil {
		return nil, err
	}
	m, err := s.Model()
	if err != nil {
		return nil, err
	}
	v, err := m.Value(x)
	if err != nil {
		return nil, err
	}
	return expr.ConstInt(v, e.Size()), nil
}

// Mapper 把AddMapper加入的每个位置取样为常量
func (s *Solver) Mapper() (*mapper.Mapper, error) {
	if s.m == nil {
		return nil, errors.New("no mapper added")
	}
	m, err := s.Model()
	if err != nil {
		return nil, err
	}
	res := mapper.New()
	for _, b := range s.binds {
		v, err := m.Value(b.v)
		if err != nil {
			return nil, err
		}
		if err := res.Set(b.loc, expr.ConstInt(v, b.loc.Size())); err != nil {
			return nil, errors.Wrapf(err, "location %s", b.loc)
		}
	}
	return res, nil
}

// IsPossible 在当前断言下conds能否同时成立
func (s *Solver) IsPossible(conds ...expr.Expr) (bool, error) {
	yices2.Push(s.ctx)
	defer func() {
		s.resetModel()
		yices2.Pop(s.ctx)
	}()
	if err := s.Add(conds...); err != nil {
		return false, err
	}
	st, err := s.Check()
	if err != nil {
		return false, err
	}
	return st == Sat, nil
}

// Close 释放上下文
func (s *Solver) Close() {
	s.resetModel()
	yices2.CloseContext(&s.ctx)
}
