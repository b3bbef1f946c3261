package session

import (
	"path/filepath"
	"testing"

	"gbinsym/internal/arch"
	_ "gbinsym/internal/arch/x86"
	"gbinsym/internal/cfg"
	"gbinsym/internal/expr"
	"gbinsym/internal/loader"
	"gbinsym/internal/mapper"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// push ebp; mov ebp,esp; mov eax,[ebp+8]; test eax,eax; jz +5; mov eax,1; pop ebp; ret
var diamond = []byte{
	0x55, 0x89, 0xe5, 0x8b, 0x45, 0x08, 0x85, 0xc0, 0x74, 0x05,
	0xb8, 0x01, 0x00, 0x00, 0x00,
	0x5d, 0xc3,
}

func open(t *testing.T) (*Session, *loader.Raw, string) {
	s, err := Open(filepath.Join(t.TempDir(), "session.db"))
	require.Nil(t, err)
	t.Cleanup(func() { s.Close() })
	cpu, err := arch.Lookup("x86")
	require.Nil(t, err)
	p := loader.NewRaw(cpu, diamond, 0x1000)
	hash, err := s.PutImage(p)
	require.Nil(t, err)
	return s, p, hash
}

func Test_Images(t *testing.T) {
	s, p, hash := open(t)
	images, err := s.Images()
	require.Nil(t, err)
	require.Equal(t, 1, len(images))
	assert.Equal(t, ImageInfo{Hash: hash, Arch: "x86", Base: 0x1000, Size: len(diamond)}, images[0])

	raw, err := s.LoadImage(hash)
	require.Nil(t, err)
	assert.Equal(t, p.Data(), raw.Data())
	assert.Equal(t, p.Base(), raw.Base())

	_, err = s.LoadImage("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func Test_Block(t *testing.T) {
	s, p, hash := open(t)
	b, err := cfg.NewLSweep(p).IterBlocks().Next()
	require.Nil(t, err)
	require.Nil(t, s.PutBlock(hash, b))

	got, err := s.GetBlock(hash, b.Address())
	require.Nil(t, err)
	assert.Equal(t, b.String(), got.String())
	assert.Equal(t, b.Length(), got.Length())
	assert.True(t, got.Has("func_start"))

	// 截断标记随块保存
	pre, _, err := b.Cut(0x1003)
	require.Nil(t, err)
	require.Nil(t, s.PutBlock(hash, pre))
	got, err = s.GetBlock(hash, 0x1000)
	require.Nil(t, err)
	assert.Equal(t, 2, len(got.Instructions))
	assert.True(t, got.Has("truncated"))

	_, err = s.GetBlock(hash, 0x2000)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func Test_Mapper(t *testing.T) {
	s, p, hash := open(t)
	b, err := cfg.NewLSweep(p).IterBlocks().Next()
	require.Nil(t, err)
	m, err := b.Mapper()
	require.Nil(t, err)
	eax, ok := p.CPU().Reg("eax")
	require.True(t, ok)
	m, err = m.Assume(expr.Ne(eax, expr.Const(0, 32)))
	require.Nil(t, err)
	m.AddTrap(0x1008, "abort")
	m.Memory().WriteBytes(expr.AbsPtr(0x8000, 32), []byte{1, 2, 3, 4})

	require.Nil(t, s.PutMapper(hash, "entry", m))
	got, err := s.GetMapper(hash, "entry")
	require.Nil(t, err)
	assert.True(t, mapper.Equal(m, got), spew.Sdump(got.State()))
	assert.Equal(t, m.Traps(), got.Traps())
	assert.Equal(t, len(m.Memory().Mods()), len(got.Memory().Mods()))
	for _, it := range m.Items() {
		assert.Equal(t, len(m.History(it.Loc)), len(got.History(it.Loc)), it.Loc.String())
	}
	data, err := got.Memory().ReadBytes(0x8000, 4)
	require.Nil(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	_, err = s.GetMapper(hash, "other")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func Test_CFG(t *testing.T) {
	s, p, hash := open(t)
	lsweep := cfg.NewLSweep(p)
	_, err := lsweep.GetCFG()
	require.Nil(t, err)
	g := lsweep.Graph()

	require.Nil(t, s.PutCFG(hash, "lsweep", g))
	got, err := s.GetCFG(hash, "lsweep")
	require.Nil(t, err)
	assert.Equal(t, g.Len(), got.Len())
	assert.Equal(t, g.Size(), got.Size())
	if diff := cmp.Diff(g.String(), got.String()); diff != "" {
		t.Errorf("graph mismatch (-want +got):\n%s", diff)
	}

	fs := cfg.Group(got, 0x1000)
	require.Equal(t, 1, len(fs))
	assert.Equal(t, 3, len(fs[0].Nodes))
}
