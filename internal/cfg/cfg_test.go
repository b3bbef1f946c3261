package cfg

import (
	"io"
	"testing"

	"gbinsym/internal/arch/sparc"
	"gbinsym/internal/arch/x86"
	"gbinsym/internal/decoder"
	"gbinsym/internal/expr"
	"gbinsym/internal/loader"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
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

// 0x2000: call 0x200b
// 0x2005: hlt; nop x5
// 0x200b: push ebp; mov ebp,esp; pop ebp; ret
var caller = []byte{
	0xe8, 0x06, 0x00, 0x00, 0x00,
	0xf4, 0x90, 0x90, 0x90, 0x90, 0x90,
	0x55, 0x89, 0xe5, 0x5d, 0xc3,
}

// 0x3000: mov eax,0x3009; jmp 0x3007
// 0x3007: jmp eax
// 0x3009: hlt
var indirect = []byte{
	0xb8, 0x09, 0x30, 0x00, 0x00, 0xeb, 0x00,
	0xff, 0xe0,
	0xf4,
}

// 0x5000: nop; nop; jne 0x5001
// 0x5004: hlt
var backward = []byte{0x90, 0x90, 0x75, 0xfd, 0xf4}

// 0x0: save %sp,-104,%sp; ba 0x10; nop
// 0xc: nop
// 0x10: ret; restore
var windowed = []byte{
	0x9d, 0xe3, 0xbf, 0x98,
	0x10, 0x80, 0x00, 0x03,
	0x01, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x00, 0x00,
	0x81, 0xc7, 0xe0, 0x08,
	0x81, 0xe8, 0x00, 0x00,
}

func edges(g *Graph) []string {
	var res []string
	for _, e := range g.Edges() {
		s := e.Src.Name() + "->" + e.Dst.Name()
		if e.Kind == EdgeCall {
			s += " call"
		}
		if e.Cond != nil {
			s += " cond"
		}
		res = append(res, s)
	}
	return res
}

func Test_IterBlocks(t *testing.T) {
	p := loader.NewRaw(x86.New(), diamond, 0x1000)
	it := NewLSweep(p).IterBlocks()
	var lengths []int
	for {
		b, err := it.Next()
		if err == io.EOF {
			break
		}
		require.Nil(t, err)
		n := 0
		for _, ins := range b.Instructions {
			n += ins.Length
		}
		assert.Equal(t, n, b.Length())
		lengths = append(lengths, b.Length())
	}
	assert.Equal(t, []int{10, 7}, lengths)

	ins, err := NewLSweep(p).IterInstructions(0x100f).Next()
	require.Nil(t, err)
	assert.Equal(t, "pop", ins.Mnemonic)
}

func Test_DelaySlot(t *testing.T) {
	p := loader.NewRaw(sparc.New(), windowed, 0)
	b, err := NewLSweep(p).IterBlocks().Next()
	require.Nil(t, err)
	require.Len(t, b.Instructions, 3)
	assert.Equal(t, 12, b.Length())
	assert.Equal(t, "ba", b.Last().Mnemonic)
	assert.True(t, b.Has(decoder.FuncStart))

	seq := b.Sequence()
	assert.Equal(t, []string{"save", "nop", "ba"}, []string{seq[0].Mnemonic, seq[1].Mnemonic, seq[2].Mnemonic})
	m, err := b.Mapper()
	require.Nil(t, err)
	assert.Equal(t, expr.Const(0x10, 32), m.Get(p.CPU().PC))

	// ba,a 0x10：延迟槽被取消
	annul := append([]byte{0x30, 0x80, 0x00, 0x04}, windowed[8:]...)
	b, err = NewLSweep(loader.NewRaw(sparc.New(), annul, 0)).IterBlocks().Next()
	require.Nil(t, err)
	assert.Equal(t, 8, b.Length())
	assert.Len(t, b.Sequence(), 1)

	_, _, err = b.Cut(4)
	var me *MisalignedError
	assert.True(t, errors.As(err, &me))
}

func Test_Cut(t *testing.T) {
	p := loader.NewRaw(x86.New(), diamond, 0x1000)
	b, err := NewLSweep(p).IterBlocks().Next()
	require.Nil(t, err)

	pre, suf, err := b.Cut(0x1006)
	require.Nil(t, err)
	assert.Equal(t, 6, pre.Length())
	assert.Equal(t, 4, suf.Length())
	assert.True(t, pre.Has(decoder.MiscTruncated))
	assert.True(t, pre.Has(decoder.FuncStart))
	assert.False(t, suf.Has(decoder.FuncStart))

	_, _, err = b.Cut(0x1004)
	assert.NotNil(t, err)
	_, _, err = b.Cut(0x1000)
	assert.NotNil(t, err)
}

func Test_LSweepCFG(t *testing.T) {
	p := loader.NewRaw(x86.New(), diamond, 0x1000)
	s := NewLSweep(p)
	funcs, err := s.GetCFG()
	require.Nil(t, err)
	require.Len(t, funcs, 1)
	assert.Equal(t, "sub_1000", funcs[0].Name)
	assert.Len(t, funcs[0].Nodes, 3)

	want := []string{"0x1000->0x100f cond", "0x1000->0x100a cond", "0x100a->0x100f"}
	if diff := cmp.Diff(want, edges(s.Graph())); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func Test_ForwardSplit(t *testing.T) {
	for _, policy := range []Policy{DefaultPolicy, {Order: BFS, Lazy: true}} {
		p := loader.NewRaw(x86.New(), diamond, 0x1000)
		f := FForward(p, policy)
		funcs, err := f.GetCFG()
		require.Nil(t, err)
		require.Len(t, funcs, 1)

		g := f.Graph()
		assert.Equal(t, 3, g.Len())
		assert.Equal(t, 3, g.Size())
		a, ok := g.Node(0x100a)
		require.True(t, ok)
		assert.Equal(t, 0x100f, int(a.Block.End()))
		c, ok := g.Node(0x100f)
		require.True(t, ok)
		assert.Len(t, c.In(), 2)
		assert.True(t, c.Block.Has(decoder.FuncEnd))

		// 块之间没有重叠
		nodes := g.Nodes()
		for i := 1; i < len(nodes); i++ {
			assert.LessOrEqual(t, nodes[i-1].Block.End(), nodes[i].Address())
		}
	}
}

// 跳回块中间时，切分后的跳转边从后半部分出发
func Test_ForwardSplitBackward(t *testing.T) {
	want := []string{"0x5000->0x5001", "0x5001->0x5004 cond", "0x5001->0x5001 cond"}
	for _, policy := range []Policy{DefaultPolicy, {Order: BFS, Lazy: true}} {
		p := loader.NewRaw(x86.New(), backward, 0x5000)
		for _, f := range []*Forward{FForward(p, policy), LForward(p, policy)} {
			_, err := f.GetCFG()
			require.Nil(t, err)
			g := f.Graph()
			assert.Equal(t, 3, g.Len())
			assert.ElementsMatch(t, want, edges(g), f.name()+" "+policy.Order.String())
			head, ok := g.Node(0x5000)
			require.True(t, ok)
			assert.Len(t, head.Block.Instructions, 1)
			assert.True(t, head.Block.Has(decoder.MiscTruncated))
		}
	}
}

func Test_FuncGrouping(t *testing.T) {
	p := loader.NewRaw(x86.New(), caller, 0x2000)
	f := FForward(p, DefaultPolicy)
	funcs, err := f.GetCFG()
	require.Nil(t, err)
	require.Len(t, funcs, 2)
	assert.Equal(t, "sub_2000", funcs[0].Name)
	assert.Equal(t, "sub_200b", funcs[1].Name)
	assert.Len(t, funcs[0].Nodes, 2)
	assert.Len(t, funcs[1].Nodes, 1)
	assert.Equal(t, []*Func{funcs[1]}, funcs[0].Calls)
	assert.ElementsMatch(t, []string{"0x2000->0x2005", "0x2000->0x200b call"}, edges(f.Graph()))
}

func Test_LForward(t *testing.T) {
	p := loader.NewRaw(x86.New(), indirect, 0x3000)

	f := FForward(p, DefaultPolicy)
	_, err := f.GetCFG()
	require.Nil(t, err)
	assert.Equal(t, 2, f.Graph().Len())
	require.Len(t, f.Errors, 1)
	var te *TopReachedError
	require.True(t, errors.As(f.Errors[0], &te))
	assert.Equal(t, uint64(0x3007), te.Address)

	strict := FForward(p, Policy{Order: DFS})
	_, err = strict.GetCFG()
	assert.True(t, errors.As(err, &te))

	l := LForward(p, DefaultPolicy)
	_, err = l.GetCFG()
	require.Nil(t, err)
	assert.Equal(t, 3, l.Graph().Len())
	assert.Empty(t, l.Errors)
	_, ok := l.Graph().Node(0x3009)
	assert.True(t, ok)
}

func Test_SparcCFG(t *testing.T) {
	p := loader.NewRaw(sparc.New(), windowed, 0)
	f := LForward(p, DefaultPolicy)
	funcs, err := f.GetCFG()
	require.Nil(t, err)
	require.Len(t, funcs, 1)
	assert.Equal(t, []string{"0x0->0x10"}, edges(f.Graph()))
	n, ok := f.Graph().Node(0x10)
	require.True(t, ok)
	assert.Equal(t, 8, n.Block.Length())
	assert.True(t, n.Block.Has(decoder.FuncEnd))
}

func Test_Index(t *testing.T) {
	p := loader.NewRaw(x86.New(), diamond, 0x1000)
	f := FForward(p, DefaultPolicy)
	_, err := f.GetCFG()
	require.Nil(t, err)

	idx := f.Graph().Index()
	n, ok := idx.Locate(0x100c)
	require.True(t, ok)
	assert.Equal(t, uint64(0x100a), n.Address())
	_, ok = idx.Locate(0x1011)
	assert.False(t, ok)
	n, ok = idx.After(0x1000, 0x1010)
	require.True(t, ok)
	assert.Equal(t, uint64(0x100a), n.Address())
}
