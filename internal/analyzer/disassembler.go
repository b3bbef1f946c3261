package analyzer

import (
	"path/filepath"

	"gbinsym/internal/loader"

	"github.com/pkg/errors"
)

// Disassembler 待分析的映像
type Disassembler struct {
	arch     string
	base     uint64
	entries  []uint64
	programs []*loader.Raw
}

func NewDisassembler(arch string, base uint64, entries ...uint64) *Disassembler {
	disassembler := &Disassembler{arch: arch, base: base, entries: entries}
	return disassembler
}

func (md *Disassembler) GetPrograms() []*loader.Raw {
	return md.programs
}

// AddProgram 加入已经装载的映像
func (md *Disassembler) AddProgram(p *loader.Raw) {
	if len(md.entries) > 0 {
		p.SetEntrypoints(md.entries...)
	}
	md.programs = append(md.programs, p)
}

func (md *Disassembler) LoadFromFiles(files []string) error {
	for _, file := range files {
		p, err := loader.Load(file, md.arch, md.base)
		if err != nil {
			return err
		}
		p.Symbols[filepath.Base(file)] = md.base
		md.AddProgram(p)
	}
	if len(md.programs) == 0 {
		return errors.New("no input file")
	}
	return nil
}
