package module

import (
	"gbinsym/internal/cfg"
	"gbinsym/internal/decoder"
	"gbinsym/internal/mapper"
)

// State hook看到的状态。Mapper只读
type State struct {
	Func        *cfg.Func
	Node        *cfg.Node
	Instruction *decoder.Instruction
	Mapper      *mapper.Mapper
}

func (st *State) FuncName() string {
	if st.Func == nil {
		return ""
	}
	return st.Func.Name
}
