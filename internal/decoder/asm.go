package decoder

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Listing 指令列表的文本形式
func Listing(instructions []*Instruction) string {
	var builder strings.Builder
	for _, ins := range instructions {
		builder.WriteString(fmt.Sprintf("0x%08x  ", ins.Address))
		builder.WriteString(fmt.Sprintf("%-20s  ", hex.EncodeToString(ins.Bytes)))
		builder.WriteString(ins.String())
		builder.WriteString("\n")
	}
	return builder.String()
}

// patterns从0开始，instructions从index开始，依次匹配助记符
func isSequenceMatch(patterns [][]string, instructions []*Instruction, index int) bool {
	for i, pattern := range patterns {
		if index+i >= len(instructions) {
			return false
		}
		var found bool
		for _, p := range pattern {
			if instructions[index+i].Mnemonic == p {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// FindMnemonicSequence 返回所有匹配助记符序列的起始下标
func FindMnemonicSequence(patterns [][]string, instructions []*Instruction) []int {
	result := make([]int, 0)
	for i := 0; i < len(instructions)-len(patterns)+1; i++ {
		if isSequenceMatch(patterns, instructions, i) {
			result = append(result, i)
		}
	}
	return result
}
