package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoadDefault(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), FileName))
	require.Nil(t, err)
	assert.Equal(t, Default(), c)
	assert.Equal(t, "lforward", c.Analysis.Strategy)
	assert.True(t, c.Analysis.Lazy)
}

func Test_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	data := `
[analysis]
arch = "sparc"
strategy = "fforward"
lazy = false
threshold = 20

[log]
level = "debug"

[session]
path = "s.db"
`
	require.Nil(t, os.WriteFile(path, []byte(data), 0o644))
	c, err := Load(path)
	require.Nil(t, err)
	assert.Equal(t, "sparc", c.Analysis.Arch)
	assert.Equal(t, "fforward", c.Analysis.Strategy)
	assert.Equal(t, "dfs", c.Analysis.Policy)
	assert.False(t, c.Analysis.Lazy)
	assert.Equal(t, 20, c.Analysis.Threshold)
	assert.Equal(t, 4096, c.Analysis.MaxBlocks)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "text", c.Log.Format)
	assert.Equal(t, "s.db", c.Session.Path)
	assert.Equal(t, path, c.Path)

	require.Nil(t, os.WriteFile(path, []byte("[analysis]\nstrategy = \"walk\"\n"), 0o644))
	_, err = Load(path)
	assert.NotNil(t, err)

	require.Nil(t, os.WriteFile(path, []byte("[analysis\n"), 0o644))
	_, err = Load(path)
	assert.NotNil(t, err)
}

func Test_FindAndLoad(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "a", "b")
	require.Nil(t, os.MkdirAll(sub, 0o755))
	require.Nil(t, os.WriteFile(filepath.Join(dir, FileName), []byte("[analysis]\narch = \"arm64\"\n"), 0o644))

	c, err := FindAndLoad(sub)
	require.Nil(t, err)
	assert.Equal(t, "arm64", c.Analysis.Arch)
	assert.Equal(t, filepath.Join(dir, FileName), c.Path)
}
