package memory

import (
	"gbinsym/internal/expr"

	"github.com/holiman/uint256"
)

// Map 所有内存区域加上写入日志，写入日志用于判断不同区域之间可能的别名
type Map struct {
	zones map[string]*Zone
	mods  []expr.Mod
}

// New 创建只包含具体内存区域的Map
func New() *Map {
	m := &Map{zones: make(map[string]*Zone)}
	m.zones[""] = newZone(nil, nil)
	return m
}

// Clone 克隆，区域共享持久化结构
func (m *Map) Clone() *Map {
	r := &Map{zones: make(map[string]*Zone, len(m.zones))}
	for k, z := range m.zones {
		r.zones[k] = z.clone()
	}
	r.mods = m.mods[:len(m.mods):len(m.mods)]
	return r
}

// Zone 返回指针所在的区域
func (m *Map) Zone(p *expr.Ptr) (*Zone, bool) {
	z, ok := m.zones[zoneKey(p.Base, p.Seg)]
	return z, ok
}

func (m *Map) zone(p *expr.Ptr) *Zone {
	k := zoneKey(p.Base, p.Seg)
	z, ok := m.zones[k]
	if !ok {
		z = newZone(p.Base, p.Seg)
		m.zones[k] = z
	}
	return z
}

// Zones 按名字排序的所有区域
func (m *Map) Zones() []*Zone {
	return sortedZones(m.zones)
}

// Mods 写入日志
func (m *Map) Mods() []expr.Mod {
	return m.mods
}

// Write 在p处写入表达式，常量以字节形式保存，大端时字节反转
func (m *Map) Write(p *expr.Ptr, v expr.Expr, endian expr.Endian) error {
	if v.Size()%8 != 0 {
		return &expr.SizeMismatchError{Op: "memory write", Left: v.Size(), Right: (v.Size() + 7) / 8 * 8}
	}
	o := &Object{VAddr: p.Disp, Endian: endian}
	if c, ok := v.(*expr.Cst); ok {
		o.Data = ConstBytes(c, endian)
	} else {
		o.Value = v
	}
	m.zone(p).write(o)
	m.mods = append(m.mods, expr.Mod{A: p, V: v, Endian: endian})
	return nil
}

// WriteBytes 在p处写入字节，不记录写入日志
func (m *Map) WriteBytes(p *expr.Ptr, data []byte) {
	if len(data) == 0 {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.zone(p).write(&Object{VAddr: p.Disp, Data: buf, Endian: expr.LittleEndian})
}

// Load 把程序映像映射到具体内存
func (m *Map) Load(addr uint64, data []byte) {
	m.WriteBytes(&expr.Ptr{Disp: int64(addr)}, data)
}

// Read 读取p处n个字节；存在空洞时同时返回*UnmappedError
func (m *Map) Read(p *expr.Ptr, n int64) ([]Fragment, error) {
	z, ok := m.Zone(p)
	if !ok {
		return []Fragment{{VAddr: p.Disp, Len: n}}, &UnmappedError{Zone: zoneKey(p.Base, p.Seg), Address: p.Disp}
	}
	frags := z.read(p.Disp, n)
	for _, f := range frags {
		if f.Hole() {
			return frags, &UnmappedError{Zone: z.Key(), Address: f.VAddr}
		}
	}
	return frags, nil
}

// ReadBytes 读取具体内存中的字节
func (m *Map) ReadBytes(addr uint64, n int) ([]byte, error) {
	frags, err := m.Read(&expr.Ptr{Disp: int64(addr)}, int64(n))
	if err != nil {
		return nil, err
	}
	res := make([]byte, 0, n)
	for _, f := range frags {
		if f.Data == nil {
			return nil, &UnmappedError{Address: f.VAddr}
		}
		res = append(res, f.Data...)
	}
	return res, nil
}

// Fetch 读取addr开始的连续具体字节，最多n个
func (m *Map) Fetch(addr uint64, n int) ([]byte, error) {
	frags, _ := m.Read(&expr.Ptr{Disp: int64(addr)}, int64(n))
	var res []byte
	for _, f := range frags {
		if f.Data == nil {
			break
		}
		res = append(res, f.Data...)
	}
	if len(res) == 0 {
		return nil, &UnmappedError{Address: int64(addr)}
	}
	return res, nil
}

// Aliasing 返回读取p处size位时需要考虑的写入：
// 从最近一次完全覆盖的写入开始，之后所有可能别名或部分覆盖的写入。
// 不存在来自其他区域的写入时返回nil，此时区域内的内容是精确的
func (m *Map) Aliasing(p *expr.Ptr, size uint) []expr.Mod {
	n := int64(size / 8)
	var (
		res     []expr.Mod
		aliased bool
	)
scan:
	for i := len(m.mods) - 1; i >= 0; i-- {
		mod := m.mods[i]
		switch expr.Relate(p, n, mod.A, int64(mod.V.Size()/8)) {
		case expr.RelDisjoint:
		case expr.RelSame:
			res = append(res, mod)
			break scan
		case expr.RelOverlap:
			res = append(res, mod)
		case expr.RelUnknown:
			res = append(res, mod)
			aliased = true
		}
	}
	if !aliased {
		return nil
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res
}

// ConstBytes 常量的字节表示
func ConstBytes(c *expr.Cst, endian expr.Endian) []byte {
	n := int(c.Size() / 8)
	b32 := c.Value().Bytes32()
	res := make([]byte, n)
	for i := 0; i < n; i++ {
		res[i] = b32[31-i]
	}
	if endian == expr.BigEndian {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			res[i], res[j] = res[j], res[i]
		}
	}
	return res
}

// BytesConst 字节序列对应的常量
func BytesConst(data []byte, endian expr.Endian) *expr.Cst {
	n := len(data)
	var b32 [32]byte
	for i := 0; i < n && i < 32; i++ {
		if endian == expr.BigEndian {
			b32[32-n+i] = data[i]
		} else {
			b32[31-i] = data[i]
		}
	}
	v := new(uint256.Int).SetBytes(b32[:])
	return expr.ConstInt(v, uint(n*8))
}

// ZoneState 区域的可序列化内容
type ZoneState struct {
	Base    expr.Expr
	Seg     expr.Expr
	Objects []*Object
}

// State 导出所有区域与写入日志
func (m *Map) State() ([]ZoneState, []expr.Mod) {
	zones := m.Zones()
	res := make([]ZoneState, len(zones))
	for i, z := range zones {
		res[i] = ZoneState{Base: z.Base, Seg: z.Seg, Objects: z.Objects()}
	}
	return res, m.mods
}

// Restore 从导出的内容重建Map
func Restore(zones []ZoneState, mods []expr.Mod) *Map {
	m := New()
	for _, zs := range zones {
		z := newZone(zs.Base, zs.Seg)
		for _, o := range zs.Objects {
			z.objs = z.objs.Set(o.VAddr, o)
		}
		m.zones[z.Key()] = z
	}
	m.mods = mods
	return m
}
