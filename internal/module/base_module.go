package module

import (
	"gbinsym/internal/finding"
)

// 指令类别之外的通配键
const AnyInstruction = "*"

type BaseModule struct {
	kindData  *KindData // 类别信息
	preHooks  []string  // 在这些类别的指令执行前，执行本模块的hook
	postHooks []string  // 在这些类别的指令执行后，执行本模块的hook
	Findings  []*finding.Finding
}

func (bm *BaseModule) Execute(st *State) ([]*finding.Finding, error) {
	return nil, nil
}

func (bm *BaseModule) GetPreHooks() []string {
	return bm.preHooks
}

func (bm *BaseModule) GetPostHooks() []string {
	return bm.postHooks
}

func (bm *BaseModule) GetKindData() *KindData {
	return bm.kindData
}

func (bm *BaseModule) GetFindings() []*finding.Finding {
	return bm.Findings
}

func (bm *BaseModule) newFinding(st *State) *finding.Finding {
	f := &finding.Finding{
		ID:          bm.kindData.ID,
		Title:       bm.kindData.Title,
		Description: bm.kindData.Description,
		Address:     st.Instruction.Address,
	}
	f.AddCodeInfo(st.Instruction, st.FuncName())
	return f
}

type DetectionModule interface {
	Execute(*State) ([]*finding.Finding, error)
	GetPreHooks() []string
	GetPostHooks() []string
	GetKindData() *KindData
	GetFindings() []*finding.Finding
}
