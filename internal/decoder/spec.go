// Package decoder 位模式描述的指令解码器
//
// 格式 "32<[ 10 rd(5) 111100 rs1(5) i=1 ~simm13(13) ]"：
// 头部是字长（或*表示可变长）加字节序，方括号内从最高位开始依次是：
// 字面位(0/1/-)、字段name(n)、有符号字段~name(n)、定值字段name=bits、
// 单比特标志name、十六进制字节{hh}，以及ModR/M字节/r或/n
package decoder

import (
	"strconv"
	"strings"

	"gbinsym/internal/expr"

	"github.com/pkg/errors"
)

// Handler 匹配成功后解释字段，返回*InstructionError表示放弃这个spec继续尝试下一个
type Handler func(ctx *CpuContext, ins *Instruction, m *Match) error

type field struct {
	name   string
	start  int // 从最高位开始计数的起始位置
	width  int
	signed bool
}

// Spec 一条指令格式
type Spec struct {
	Format  string
	Kwargs  map[string]interface{}
	Handler Handler

	fixed  bool
	nbits  int
	endian expr.Endian
	mask   []byte
	value  []byte
	fields []field
}

// NewSpec 解析格式
func NewSpec(format string, kwargs map[string]interface{}, h Handler) (*Spec, error) {
	s := &Spec{Format: format, Kwargs: kwargs, Handler: h, endian: expr.LittleEndian}
	open, end := strings.Index(format, "["), strings.LastIndex(format, "]")
	if open < 0 || end < open {
		return nil, errors.Errorf("spec %q: missing brackets", format)
	}
	head := strings.TrimSpace(format[:open])
	switch {
	case strings.HasSuffix(head, "<"):
		head = strings.TrimSuffix(head, "<")
	case strings.HasSuffix(head, ">"):
		head = strings.TrimSuffix(head, ">")
		s.endian = expr.BigEndian
	}
	size := 0
	if head != "*" {
		n, err := strconv.Atoi(head)
		if err != nil || n <= 0 || n > 64 || n%8 != 0 {
			return nil, errors.Errorf("spec %q: bad size %q", format, head)
		}
		s.fixed, size = true, n
	}
	var bits []byte
	for _, tok := range strings.Fields(format[open+1 : end]) {
		var err error
		if bits, err = s.parseToken(bits, tok); err != nil {
			return nil, errors.Wrapf(err, "spec %q", format)
		}
	}
	s.nbits = len(bits)
	if s.fixed && s.nbits != size {
		return nil, errors.Errorf("spec %q: %d bits for a %d-bit word", format, s.nbits, size)
	}
	if s.nbits == 0 || s.nbits%8 != 0 {
		return nil, errors.Errorf("spec %q: %d bits is not a whole number of bytes", format, s.nbits)
	}
	nb := s.nbits / 8
	s.mask, s.value = make([]byte, nb), make([]byte, nb)
	for i, b := range bits {
		if b == '-' || b == 'f' {
			continue
		}
		s.mask[i/8] |= 0x80 >> uint(i%8)
		if b == '1' {
			s.value[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return s, nil
}

// MustSpec 解析失败时panic，用于架构初始化
func MustSpec(format string, kwargs map[string]interface{}, h Handler) *Spec {
	s, err := NewSpec(format, kwargs, h)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Spec) addField(bits []byte, name string, width int, signed bool) []byte {
	s.fields = append(s.fields, field{name: name, start: len(bits), width: width, signed: signed})
	for i := 0; i < width; i++ {
		bits = append(bits, 'f')
	}
	return bits
}

func (s *Spec) parseToken(bits []byte, tok string) ([]byte, error) {
	switch {
	case strings.HasPrefix(tok, "{") && strings.HasSuffix(tok, "}"):
		hex := tok[1 : len(tok)-1]
		if len(hex) == 0 || len(hex)%2 != 0 || len(bits)%8 != 0 {
			return nil, errors.Errorf("bad byte literal %q", tok)
		}
		for i := 0; i < len(hex); i += 2 {
			v, err := strconv.ParseUint(hex[i:i+2], 16, 8)
			if err != nil {
				return nil, errors.Wrapf(err, "byte literal %q", tok)
			}
			for j := 7; j >= 0; j-- {
				bits = append(bits, '0'+byte(v>>uint(j)&1))
			}
		}
		return bits, nil
	case tok == "/r" || (len(tok) == 2 && tok[0] == '/' && tok[1] >= '0' && tok[1] <= '7'):
		if len(bits)%8 != 0 {
			return nil, errors.Errorf("unaligned %s", tok)
		}
		bits = s.addField(bits, "mod", 2, false)
		if tok == "/r" {
			bits = s.addField(bits, "reg", 3, false)
		} else {
			for j := 2; j >= 0; j-- {
				bits = append(bits, '0'+(tok[1]-'0')>>uint(j)&1)
			}
		}
		return s.addField(bits, "rm", 3, false), nil
	case strings.Trim(tok, "01-") == "":
		return append(bits, tok...), nil
	}
	signed := strings.HasPrefix(tok, "~")
	tok = strings.TrimPrefix(tok, "~")
	if i := strings.Index(tok, "="); i > 0 {
		lit := tok[i+1:]
		if lit == "" || strings.Trim(lit, "01") != "" {
			return nil, errors.Errorf("bad fixed field %q", tok)
		}
		s.fields = append(s.fields, field{name: tok[:i], start: len(bits), width: len(lit), signed: signed})
		return append(bits, lit...), nil
	}
	name, width := tok, 1
	if i := strings.Index(tok, "("); i > 0 && strings.HasSuffix(tok, ")") {
		n, err := strconv.Atoi(tok[i+1 : len(tok)-1])
		if err != nil || n <= 0 || n > 64 {
			return nil, errors.Errorf("bad field width %q", tok)
		}
		name, width = tok[:i], n
	}
	if !validName(name) {
		return nil, errors.Errorf("bad token %q", tok)
	}
	return s.addField(bits, name, width, signed), nil
}

func validName(n string) bool {
	if n == "" {
		return false
	}
	for i, c := range n {
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return true
}

// Fixed 是否为定长格式
func (s *Spec) Fixed() bool {
	return s.fixed
}

// Len 匹配部分的字节数
func (s *Spec) Len() int {
	return s.nbits / 8
}

// Mnemonic 格式参数中的助记符
func (s *Spec) Mnemonic() string {
	m, _ := s.Kwargs["mnemonic"].(string)
	return m
}

// Match 尝试匹配，endian非0时覆盖定长格式的字节序
func (s *Spec) Match(data []byte, endian expr.Endian) (*Match, bool) {
	nb := s.nbits / 8
	if len(data) < nb {
		return nil, false
	}
	stream := data[:nb]
	if s.fixed {
		if endian == 0 {
			endian = s.endian
		}
		stream = make([]byte, nb)
		copy(stream, data[:nb])
		if endian == expr.LittleEndian {
			for i, j := 0, nb-1; i < j; i, j = i+1, j-1 {
				stream[i], stream[j] = stream[j], stream[i]
			}
		}
	}
	for i := 0; i < nb; i++ {
		if stream[i]&s.mask[i] != s.value[i] {
			return nil, false
		}
	}
	m := &Match{Spec: s, Fields: make(map[string]int64, len(s.fields)), Len: nb, data: data, endian: s.endian}
	if endian != 0 {
		m.endian = endian
	}
	for _, f := range s.fields {
		var v uint64
		for i := f.start; i < f.start+f.width; i++ {
			v = v<<1 | uint64(stream[i/8]>>uint(7-i%8)&1)
		}
		if f.signed && f.width < 64 && v&(1<<uint(f.width-1)) != 0 {
			v |= ^uint64(0) << uint(f.width)
		}
		m.Fields[f.name] = int64(v)
	}
	return m, true
}

// Match 匹配结果
type Match struct {
	Spec   *Spec
	Fields map[string]int64
	Len    int
	data   []byte
	endian expr.Endian
}

// Get 字段值，有符号字段已符号扩展
func (m *Match) Get(name string) int64 {
	return m.Fields[name]
}

// Has 是否有该字段
func (m *Match) Has(name string) bool {
	_, ok := m.Fields[name]
	return ok
}

// Kw 格式参数
func (m *Match) Kw(name string) interface{} {
	return m.Spec.Kwargs[name]
}

// Rest 已消费部分之后的数据
func (m *Match) Rest() []byte {
	return m.data[m.Len:]
}

// Consume 继续消费n个字节，用于SIB、位移和立即数
func (m *Match) Consume(n int) ([]byte, error) {
	if len(m.data) < m.Len+n {
		return nil, &InstructionError{Reason: "truncated"}
	}
	b := m.data[m.Len : m.Len+n]
	m.Len += n
	return b, nil
}

// Imm 按字节序读取n字节立即数
func (m *Match) Imm(n int, signed bool) (int64, error) {
	b, err := m.Consume(n)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < n; i++ {
		if m.endian == expr.BigEndian {
			v = v<<8 | uint64(b[i])
		} else {
			v |= uint64(b[i]) << uint(8*i)
		}
	}
	if signed && n < 8 && v&(1<<uint(8*n-1)) != 0 {
		v |= ^uint64(0) << uint(8*n)
	}
	return int64(v), nil
}
