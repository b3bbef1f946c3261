package loader

import (
	"os"
	"path/filepath"
	"testing"

	_ "gbinsym/internal/arch/x86"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "code.bin")
	require.Nil(t, os.WriteFile(path, []byte{0x55, 0x89, 0xe5, 0xc9, 0xc3}, 0o644))

	p, err := Load(path, "x86", 0x8000)
	require.Nil(t, err)
	assert.Equal(t, "x86", p.CPU().Name)
	assert.Equal(t, []uint64{0x8000}, p.Entrypoints())

	data, err := p.Memory().ReadBytes(0x8001, 2)
	require.Nil(t, err)
	assert.Equal(t, []byte{0x89, 0xe5}, data)

	_, err = p.Memory().ReadBytes(0x8005, 1)
	assert.NotNil(t, err)

	_, err = Load(path, "mips", 0)
	assert.NotNil(t, err)
	_, err = Load(filepath.Join(dir, "missing"), "x86", 0)
	assert.NotNil(t, err)
}
