package main

import (
	"fmt"

	"gbinsym/internal/analyzer"

	"github.com/spf13/cobra"
)

var cfgCommand = &cobra.Command{
	Use:   "cfg",
	Short: "recover the control flow graph and print functions and blocks",
	Long:  ``,
	RunE: func(*cobra.Command, []string) error {
		return recoverCFG()
	},
}

func init() {
	addInputFlags(cfgCommand)
}

func recoverCFG() error {
	p, err := loadInput()
	if err != nil {
		return err
	}
	analyzer.Apply(conf.Analysis)
	explorer, err := analyzer.NewExplorer(p, conf.Analysis)
	if err != nil {
		return err
	}
	funcs, err := explorer.GetCFG()
	if err != nil {
		return err
	}
	for _, fn := range funcs {
		fmt.Println(fn)
	}
	fmt.Println()
	fmt.Print(explorer.Graph())
	return nil
}
