// Package finding 分析模块报告的问题
package finding

import (
	"fmt"
	"strings"

	"gbinsym/internal/decoder"
)

// NoColour 为真时不输出终端颜色
var NoColour bool

type Finding struct {
	ID          string
	Title       string
	Description string

	Address  uint64
	Function string
	Code     string
	Detail   string
}

// AddCodeInfo 记录出问题的指令和所在函数
func (f *Finding) AddCodeInfo(ins *decoder.Instruction, function string) {
	f.Function = function
	if ins != nil {
		f.Code = strings.TrimSpace(decoder.Listing([]*decoder.Instruction{ins}))
	}
}

// Key 去重用的键
func (f *Finding) Key() string {
	return fmt.Sprintf("%s@%#x", f.ID, f.Address)
}

func (f *Finding) String() string {
	description := fmt.Sprintf("ID: %s\nTitle: %s\nDescription: %s\n",
		f.ID, f.Title, f.Description)
	if f.Detail != "" {
		description += "Detail: " + f.Detail + "\n"
	}
	description = Colour(31, description+"\n")

	function := f.Function
	if function == "" {
		function = "unknown function"
	}
	codeInfo := fmt.Sprintf("At %#x in %s:\n%s\n", f.Address, function, f.Code)
	codeInfo = Colour(33, codeInfo)

	return fmt.Sprintf("%s%s", description, codeInfo)
}

func Colour(color int, str string) string {
	if NoColour {
		return str
	}
	return fmt.Sprintf("\033[%dm%s\033[0m", color, str)
}
