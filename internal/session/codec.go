package session

import (
	"fmt"

	"gbinsym/internal/cfg"
	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"
	"gbinsym/internal/memory"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("session: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type blockRecord struct {
	Address uint64          `cbor:"addr"`
	Bytes   []byte          `cbor:"bytes"`
	Misc    map[string]bool `cbor:"misc,omitempty"`
}

type itemRecord struct {
	Loc     *expr.Node   `cbor:"loc"`
	History []*expr.Node `cbor:"hist"`
}

type objectRecord struct {
	VAddr  int64       `cbor:"vaddr"`
	Data   []byte      `cbor:"data,omitempty"`
	Value  *expr.Node  `cbor:"value,omitempty"`
	Endian expr.Endian `cbor:"endian"`
}

type zoneRecord struct {
	Base    *expr.Node     `cbor:"base,omitempty"`
	Seg     *expr.Node     `cbor:"seg,omitempty"`
	Objects []objectRecord `cbor:"objs"`
}

type mapperRecord struct {
	Items            []itemRecord   `cbor:"items"`
	Conds            []*expr.Node   `cbor:"conds,omitempty"`
	Zones            []zoneRecord   `cbor:"zones,omitempty"`
	Mods             []expr.ModNode `cbor:"mods,omitempty"`
	Traps            []mapper.Trap  `cbor:"traps,omitempty"`
	AssumeNoAliasing bool           `cbor:"noalias,omitempty"`
}

type edgeRecord struct {
	Src  uint64       `cbor:"src"`
	Dst  uint64       `cbor:"dst"`
	Cond *expr.Node   `cbor:"cond,omitempty"`
	Kind cfg.EdgeKind `cbor:"kind"`
}

type graphRecord struct {
	Nodes []uint64     `cbor:"nodes"`
	Edges []edgeRecord `cbor:"edges"`
}

func encodeBlock(b *cfg.Block) ([]byte, error) {
	r := blockRecord{Address: b.Address(), Misc: make(map[string]bool)}
	for _, ins := range b.Instructions {
		r.Bytes = append(r.Bytes, ins.Bytes...)
	}
	for k, v := range b.Misc {
		if f, ok := v.(bool); ok {
			r.Misc[k] = f
		}
	}
	return cborEncMode.Marshal(&r)
}

func encodeList(es []expr.Expr) []*expr.Node {
	if len(es) == 0 {
		return nil
	}
	res := make([]*expr.Node, len(es))
	for i, e := range es {
		res[i] = expr.Encode(e)
	}
	return res
}

func decodeList(ns []*expr.Node) ([]expr.Expr, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	res := make([]expr.Expr, len(ns))
	for i, n := range ns {
		e, err := expr.Decode(n)
		if err != nil {
			return nil, err
		}
		res[i] = e
	}
	return res, nil
}

func encodeMapper(m *mapper.Mapper) ([]byte, error) {
	s := m.State()
	r := mapperRecord{
		Conds:            encodeList(s.Conds),
		Mods:             expr.EncodeMods(s.Mods),
		Traps:            s.Traps,
		AssumeNoAliasing: s.AssumeNoAliasing,
	}
	for _, it := range s.Items {
		r.Items = append(r.Items, itemRecord{Loc: expr.Encode(it.Loc), History: encodeList(it.History)})
	}
	for _, z := range s.Zones {
		zr := zoneRecord{Base: expr.Encode(z.Base), Seg: expr.Encode(z.Seg)}
		for _, o := range z.Objects {
			zr.Objects = append(zr.Objects, objectRecord{
				VAddr:  o.VAddr,
				Data:   o.Data,
				Value:  expr.Encode(o.Value),
				Endian: o.Endian,
			})
		}
		r.Zones = append(r.Zones, zr)
	}
	return cborEncMode.Marshal(&r)
}

func decodeMapper(data []byte) (*mapper.Mapper, error) {
	var r mapperRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("session: unmarshal mapper: %w", err)
	}
	s := &mapper.State{Traps: r.Traps, AssumeNoAliasing: r.AssumeNoAliasing}
	var err error
	if s.Conds, err = decodeList(r.Conds); err != nil {
		return nil, err
	}
	if s.Mods, err = expr.DecodeMods(r.Mods); err != nil {
		return nil, err
	}
	for _, it := range r.Items {
		loc, err := expr.Decode(it.Loc)
		if err != nil {
			return nil, err
		}
		hist, err := decodeList(it.History)
		if err != nil {
			return nil, err
		}
		s.Items = append(s.Items, mapper.HistItem{Loc: loc, History: hist})
	}
	for _, zr := range r.Zones {
		z := memory.ZoneState{}
		if z.Base, err = expr.Decode(zr.Base); err != nil {
			return nil, err
		}
		if z.Seg, err = expr.Decode(zr.Seg); err != nil {
			return nil, err
		}
		for _, or := range zr.Objects {
			v, err := expr.Decode(or.Value)
			if err != nil {
				return nil, err
			}
			z.Objects = append(z.Objects, &memory.Object{VAddr: or.VAddr, Data: or.Data, Value: v, Endian: or.Endian})
		}
		s.Zones = append(s.Zones, z)
	}
	return mapper.FromState(s), nil
}

func encodeGraph(g *cfg.Graph) ([]byte, error) {
	r := graphRecord{}
	for _, n := range g.Nodes() {
		r.Nodes = append(r.Nodes, n.Address())
	}
	for _, e := range g.Edges() {
		r.Edges = append(r.Edges, edgeRecord{
			Src:  e.Src.Address(),
			Dst:  e.Dst.Address(),
			Cond: expr.Encode(e.Cond),
			Kind: e.Kind,
		})
	}
	return cborEncMode.Marshal(&r)
}
