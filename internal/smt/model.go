package smt

import (
	"fmt"

	"github.com/holiman/uint256"
	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
)

// Model 可满足时的赋值
type Model struct {
	raw *yices2.ModelT
}

func newModel(ctx yices2.ContextT) (*Model, error) {
	raw := yices2.GetModel(ctx, 1)
	if raw == nil {
		return nil, fmt.Errorf("get model: %s", yices2.ErrorString())
	}
	return &Model{raw: raw}, nil
}

// Value 位向量项在模型中的值
func (m *Model) Value(bv *BitVec) (*uint256.Int, error) {
	bits := make([]int32, bv.Size())
	if errcode := yices2.GetBvValue(*m.raw, bv.GetRaw(), bits); errcode != 0 {
		return nil, fmt.Errorf("get bv value: %s", yices2.ErrorString())
	}
	return fromBits(bits), nil
}

// Bool 布尔项在模型中的值
func (m *Model) Bool(b *Bool) (bool, error) {
	var val int32
	if errcode := yices2.GetBoolValue(*m.raw, b.GetRaw(), &val); errcode != 0 {
		return false, fmt.Errorf("get bool value: %s", yices2.ErrorString())
	}
	return val != 0, nil
}

func (m *Model) Close() {
	if m.raw != nil {
		yices2.CloseModel(m.raw)
		m.raw = nil
	}
}
