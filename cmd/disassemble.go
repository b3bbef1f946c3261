package main

import (
	"fmt"
	"io"

	_ "gbinsym/internal/arch/arm64"
	_ "gbinsym/internal/arch/sparc"
	_ "gbinsym/internal/arch/x86"
	"gbinsym/internal/cfg"
	"gbinsym/internal/decoder"

	"github.com/spf13/cobra"
)

var disassembleCommand = &cobra.Command{
	Use:   "disassemble",
	Short: "disassemble file linearly and print the listing",
	Long:  ``,
	RunE: func(*cobra.Command, []string) error {
		return disassemble()
	},
}

func init() {
	addInputFlags(disassembleCommand)
}

func disassemble() error {
	p, err := loadInput()
	if err != nil {
		return err
	}
	it := cfg.NewLSweep(p).IterInstructions()
	for {
		ins, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Print(decoder.Listing([]*decoder.Instruction{ins}))
	}
}
