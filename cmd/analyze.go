package main

import (
	"fmt"

	"gbinsym/internal/analyzer"
	"gbinsym/internal/module"
	"gbinsym/internal/session"
	"gbinsym/internal/smt"
	"gbinsym/internal/stub"

	"github.com/spf13/cobra"
)

var analyzeCommand = &cobra.Command{
	Use:   "analyze",
	Short: "analyze binary and report findings",
	Long:  ``,
	RunE: func(*cobra.Command, []string) error {
		return analyzeExec()
	},
}

var (
	SessionPath string
	StubScript  string
)

func init() {
	addInputFlags(analyzeCommand)
	analyzeCommand.Flags().StringVar(&SessionPath, "session", "", "sqlite file to store the results")
	analyzeCommand.Flags().StringVar(&StubScript, "stubs", "", "lua script defining external stubs")
}

func analyzeExec() error {
	smt.Init()
	defer smt.Exit()

	p, err := loadInput()
	if err != nil {
		return err
	}
	if StubScript == "" {
		StubScript = conf.Stubs.Script
	}
	if StubScript != "" {
		stubs, err := stub.LoadFile(p.CPU(), StubScript)
		if err != nil {
			return err
		}
		defer stubs.Close()
	}

	moduleManager, err := module.NewDefaultModuleManager(conf.Analysis.Modules...)
	if err != nil {
		return err
	}
	disassembler := analyzer.NewDisassembler(conf.Analysis.Arch, p.Base())
	disassembler.AddProgram(p)
	ma := analyzer.NewAnalyzer(moduleManager, disassembler, conf.Analysis)

	if SessionPath == "" {
		SessionPath = conf.Session.Path
	}
	if SessionPath != "" {
		s, err := session.Open(SessionPath)
		if err != nil {
			return err
		}
		defer s.Close()
		ma.SetSession(s)
	}

	findings, err := ma.Run()
	if err != nil {
		return err
	}
	for _, f := range findings {
		fmt.Println(f)
	}
	return nil
}
