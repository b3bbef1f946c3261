package expr

// RegType 寄存器类别
type RegType int

const (
	RegOther RegType = iota
	RegPC
	RegFlags
	RegStack
)

type subKey struct {
	pos, width uint
}

// Reg 寄存器，按名字比较
type Reg struct {
	Name string
	Type RegType
	size uint
	sf   bool
	subs map[subKey]string
}

// NewReg 创建普通寄存器
func NewReg(name string, size uint) *Reg {
	return NewRegT(name, size, RegOther)
}

// NewRegT 创建指定类别的寄存器
func NewRegT(name string, size uint, typ RegType) *Reg {
	if size == 0 {
		panic(&SizeMismatchError{Op: "register " + name, Left: size, Right: 1})
	}
	return &Reg{Name: name, Type: typ, size: size, subs: make(map[subKey]string)}
}

func (r *Reg) Kind() Kind     { return KindReg }
func (r *Reg) Size() uint     { return r.size }
func (r *Reg) Signed() bool   { return r.sf }
func (r *Reg) Depth() int     { return 1 }
func (r *Reg) Simplify() Expr { return r }
func (r *Reg) String() string { return r.Name }

func (r *Reg) Eval(env Env) (Expr, error) {
	if env == nil {
		return r, nil
	}
	v := env.Lookup(r)
	if v == nil {
		return nil, &UndefinedError{What: r.Name}
	}
	if r.sf {
		v = AsSigned(v)
	}
	return v, nil
}

// Alias 为寄存器的一段命名，返回对应的切片，用于定义al/ah/zf之类的子寄存器
func (r *Reg) Alias(pos, width uint, name string) *Slc {
	if width == 0 || pos+width > r.size {
		panic(&InvalidSliceError{Pos: pos, Width: width, Size: r.size})
	}
	r.subs[subKey{pos, width}] = name
	return &Slc{X: r, Pos: pos, size: width, Name: name}
}

// SubName 返回切片的命名
func (r *Reg) SubName(pos, width uint) (string, bool) {
	n, ok := r.subs[subKey{pos, width}]
	return n, ok
}
