package module

import (
	"fmt"

	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
	"gbinsym/internal/finding"
	"gbinsym/internal/smt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type IndirectBranch struct {
	*BaseModule
}

func NewIndirectBranch() *IndirectBranch {
	indirectBranch := &IndirectBranch{
		BaseModule: &BaseModule{
			kindData:  KindDataMap["IB-001"],
			postHooks: []string{decoder.TypeControlFlow.String()},
			Findings:  make([]*finding.Finding, 0),
		},
	}
	return indirectBranch
}

type leaf struct {
	target expr.Expr
	cond   expr.Expr
}

// leaves 展开条件和集合，得到每个可能的目标及其条件
func leaves(e, cond expr.Expr) []leaf {
	switch x := e.(type) {
	case *expr.Tst:
		return append(
			leaves(x.T, conj(cond, x.Cond)),
			leaves(x.F, conj(cond, expr.Not(x.Cond)))...)
	case *expr.Vec:
		if x.Widened() {
			break
		}
		var res []leaf
		for _, it := range x.Items {
			res = append(res, leaves(it, cond)...)
		}
		return res
	}
	return []leaf{{target: e, cond: cond}}
}

func conj(a, b expr.Expr) expr.Expr {
	if a == nil {
		return b
	}
	return expr.And(a, b)
}

func (indirectBranch *IndirectBranch) Execute(st *State) (findings []*finding.Finding, err error) {
	log.Debug("Entering IndirectBranch")
	defer log.Debug("Exiting IndirectBranch")

	defer func() {
		indirectBranch.Findings = append(indirectBranch.Findings, findings...)
	}()

	// 返回地址来自栈，不在这里判断
	if st.Node != nil && st.Node.Has(decoder.FuncEnd) {
		return nil, nil
	}
	cpu := st.Instruction.CPU()
	if cpu == nil {
		return nil, nil
	}
	for _, l := range leaves(st.Mapper.Get(cpu.PC), nil) {
		switch l.target.(type) {
		case *expr.Cst, *expr.Ext:
			continue
		}
		unique, sample, err := isUniqueBranch(st, l)
		if err != nil {
			return nil, errors.Wrapf(err, "target %s", l.target)
		}
		if unique {
			continue
		}
		f := indirectBranch.newFinding(st)
		f.Detail = fmt.Sprintf("target %s", l.target)
		if sample != nil {
			f.Detail += fmt.Sprintf(", e.g. %s", sample)
		}
		return []*finding.Finding{f}, nil
	}
	return nil, nil
}

// isUniqueBranch 在路径条件下目标是否只有一个取值
func isUniqueBranch(st *State, l leaf) (bool, *expr.Cst, error) {
	solver, err := smt.NewSolver(st.Mapper.Conds()...)
	if err != nil {
		return false, nil, errors.Wrap(err, "NewSolver")
	}
	defer solver.Close()
	if l.cond != nil {
		if err := solver.Add(l.cond); err != nil {
			return false, nil, errors.Wrap(err, "Add")
		}
	}
	status, err := solver.Check()
	if err != nil {
		return false, nil, errors.Wrap(err, "Check")
	}
	if status != smt.Sat {
		// 不可达的分支
		return true, nil, nil
	}
	value, err := solver.Value(l.target)
	if err != nil {
		return false, nil, errors.Wrap(err, "Value")
	}
	possible, err := solver.IsPossible(expr.Ne(l.target, value))
	if err != nil {
		return false, nil, errors.Wrap(err, "IsPossible")
	}
	return !possible, value, nil
}
