package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"gbinsym/internal/arch/x86"
	"gbinsym/internal/config"
	"gbinsym/internal/loader"
	"gbinsym/internal/module"
	"gbinsym/internal/session"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 0x1000: push ebp; mov ebp,esp; mov eax,[ebp+8]; test eax,eax; jz 0x100f
// 0x100a: mov eax,1
// 0x100f: pop ebp; ret
var diamond = []byte{
	0x55, 0x89, 0xe5, 0x8b, 0x45, 0x08, 0x85, 0xc0, 0x74, 0x05,
	0xb8, 0x01, 0x00, 0x00, 0x00,
	0x5d, 0xc3,
}

// 0x3000: mov eax,[ebx]; jmp eax
var dispatch = []byte{0x8b, 0x03, 0xff, 0xe0}

// 0x4000: int3; movzx eax,cl; hlt
var trapped = []byte{0xcc, 0x0f, 0xb6, 0xc1, 0xf4}

func run(t *testing.T, code []byte, base uint64, conf config.Analysis) (*Analyzer, []string) {
	mm, err := module.NewDefaultModuleManager()
	require.Nil(t, err)
	d := NewDisassembler("x86", base)
	d.AddProgram(loader.NewRaw(x86.New(), code, base))
	ma := NewAnalyzer(mm, d, conf)
	findings, err := ma.Run()
	require.Nil(t, err)
	var ids []string
	for _, f := range findings {
		ids = append(ids, f.Key())
	}
	return ma, ids
}

func Test_Run(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	for _, strategy := range []string{"lsweep", "fforward", "lforward"} {
		conf := config.Default().Analysis
		conf.Strategy = strategy
		ma, ids := run(t, diamond, 0x1000, conf)
		assert.Equal(t, 0, len(ids), strategy)
		require.Equal(t, 1, len(ma.Results))
		assert.Equal(t, 3, ma.Results[0].Graph.Len(), strategy)
	}
}

func Test_RunFindings(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	conf := config.Default().Analysis
	conf.Strategy = "lsweep"
	_, ids := run(t, dispatch, 0x3000, conf)
	assert.Equal(t, []string{"IB-001@0x3002"}, ids)

	_, ids = run(t, trapped, 0x4000, conf)
	assert.Equal(t, []string{"EX-001@0x4000", "MS-001@0x4001"}, ids)
}

func Test_Session(t *testing.T) {
	yices2.Init()
	defer yices2.Exit()

	s, err := session.Open(filepath.Join(t.TempDir(), "s.db"))
	require.Nil(t, err)
	defer s.Close()

	mm, err := module.NewDefaultModuleManager()
	require.Nil(t, err)
	path := filepath.Join(t.TempDir(), "diamond.bin")
	require.Nil(t, os.WriteFile(path, diamond, 0o644))
	d := NewDisassembler("x86", 0x1000)
	require.Nil(t, d.LoadFromFiles([]string{path}))

	conf := config.Default().Analysis
	ma := NewAnalyzer(mm, d, conf)
	ma.SetSession(s)
	_, err = ma.Run()
	require.Nil(t, err)

	image := ma.Results[0].Image
	g, err := s.GetCFG(image, "lforward")
	require.Nil(t, err)
	assert.Equal(t, ma.Results[0].Graph.String(), g.String())
	m, err := s.GetMapper(image, "0x100a")
	require.Nil(t, err)
	assert.Equal(t, 2, m.Len())
}

func Test_NewExplorer(t *testing.T) {
	p := loader.NewRaw(x86.New(), diamond, 0x1000)
	conf := config.Default().Analysis
	conf.Policy = "random"
	_, err := NewExplorer(p, conf)
	assert.NotNil(t, err)
	conf = config.Default().Analysis
	conf.Strategy = "walk"
	_, err = NewExplorer(p, conf)
	assert.NotNil(t, err)

	assert.Equal(t, 0, len(NewDisassembler("x86", 0).GetPrograms()))
	assert.NotNil(t, NewDisassembler("x86", 0).LoadFromFiles(nil))
}
