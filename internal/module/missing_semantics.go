package module

import (
	"gbinsym/internal/finding"

	log "github.com/sirupsen/logrus"
)

type MissingSemantics struct {
	*BaseModule
}

func NewMissingSemantics() *MissingSemantics {
	return &MissingSemantics{
		BaseModule: &BaseModule{
			kindData: KindDataMap["MS-001"],
			preHooks: []string{AnyInstruction},
			Findings: make([]*finding.Finding, 0),
		},
	}
}

func (missingSemantics *MissingSemantics) Execute(st *State) (findings []*finding.Finding, err error) {
	log.Debug("Entering MissingSemantics")
	defer log.Debug("Exiting MissingSemantics")

	defer func() {
		missingSemantics.Findings = append(missingSemantics.Findings, findings...)
	}()

	cpu := st.Instruction.CPU()
	if cpu == nil || cpu.HasSemantics(st.Instruction.Mnemonic) {
		return nil, nil
	}
	f := missingSemantics.newFinding(st)
	f.Detail = "mnemonic " + st.Instruction.Mnemonic
	return []*finding.Finding{f}, nil
}
