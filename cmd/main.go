package main

import (
	goflag "flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:               "gbinsym",
	Short:             "gbinsym, symbolic binary analysis: disassembly, cfg recovery and solver-backed checks",
	Long:              "",
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func main() {
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)

	rootCmd.AddCommand(versionCommand)
	rootCmd.AddCommand(analyzeCommand)
	rootCmd.AddCommand(disassembleCommand)
	rootCmd.AddCommand(cfgCommand)
	rootCmd.AddCommand(sessionCommand)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
