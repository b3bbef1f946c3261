package arch

import (
	"testing"

	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"

	"github.com/stretchr/testify/assert"
)

func Test_Registry(t *testing.T) {
	Register("toy", func() *decoder.CPU {
		return decoder.NewCPU("toy", expr.NewRegT("pc", 16, expr.RegPC), 2)
	})
	c, err := Lookup("toy")
	assert.Nil(t, err)
	assert.Equal(t, "toy", c.Name)
	assert.Contains(t, Names(), "toy")

	_, err = Lookup("vax")
	assert.NotNil(t, err)
}
