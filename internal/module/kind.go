package module

// 问题类别

type KindData struct {
	ID          string
	Title       string
	Description string
}

var KindDataMap = map[string]*KindData{
	"IB-001": {
		"IB-001",
		"Unresolved Indirect Branch",
		"The branch target depends on a value that is not fixed by the path conditions. More than one destination is feasible, so the control flow graph is incomplete at this point and the target may be controlled by whoever controls the operands.",
	},
	"MS-001": {
		"MS-001",
		"Missing Instruction Semantics",
		"The instruction decodes but its mnemonic has no semantic function. Its register and memory operands are set to top, so every value derived from them afterwards is unknown.",
	},
	"EX-001": {
		"EX-001",
		"External Call Without Stub",
		"Control reaches an external symbol that has no registered stub. The effect of the call is not modelled and the state after the call is an approximation.",
	},
}
