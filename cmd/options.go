package main

import (
	"os"

	"gbinsym/internal/config"
	"gbinsym/internal/finding"
	"gbinsym/internal/loader"
	"gbinsym/internal/util"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	conf *config.Config

	ConfigFile string
	InputFile  string
	Arch       string
	Base       string
	Entry      string
	Strategy   string
	Policy     string
	Strict     bool
	LogLevel   string
	NoColour   bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ConfigFile, "config", "", "config file, default: gbinsym.toml in current or parent directory")
	flags.StringVar(&Arch, "arch", "", "architecture: x86 | sparc | arm64")
	flags.StringVar(&Strategy, "strategy", "", "cfg strategy: lsweep | fforward | lforward")
	flags.StringVar(&Policy, "policy", "", "exploration order: dfs | bfs")
	flags.BoolVar(&Strict, "strict", false, "stop at the first unresolved branch")
	flags.StringVar(&LogLevel, "log-level", "", "log level")
	flags.BoolVar(&NoColour, "no-colour", false, "disable coloured output")
}

// addInputFlags 需要映像的命令共用
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&InputFile, "file", "", "raw binary image")
	cmd.Flags().StringVar(&Base, "base", "0", "load address")
	cmd.Flags().StringVar(&Entry, "entry", "", "comma separated entry points, default: base")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	if ConfigFile != "" {
		conf, err = config.Load(ConfigFile)
	} else {
		conf, err = config.FindAndLoad(".")
	}
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("arch") {
		conf.Analysis.Arch = Arch
	}
	if flags.Changed("strategy") {
		conf.Analysis.Strategy = Strategy
	}
	if flags.Changed("policy") {
		conf.Analysis.Policy = Policy
	}
	if flags.Changed("strict") {
		conf.Analysis.Lazy = !Strict
	}
	if flags.Changed("log-level") {
		conf.Log.Level = LogLevel
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	level, err := log.ParseLevel(conf.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if conf.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	finding.NoColour = NoColour || !term.IsTerminal(int(os.Stdout.Fd()))
	if conf.Path != "" {
		log.Debugf("config %s", conf.Path)
	}
	return nil
}

func loadInput() (*loader.Raw, error) {
	if InputFile == "" {
		return nil, errors.New("--file is required")
	}
	base, err := util.ParseAddress(Base)
	if err != nil {
		return nil, errors.Wrapf(err, "--base %s", Base)
	}
	p, err := loader.Load(InputFile, conf.Analysis.Arch, base)
	if err != nil {
		return nil, err
	}
	entries, err := util.ParseAddresses(Entry)
	if err != nil {
		return nil, errors.Wrapf(err, "--entry %s", Entry)
	}
	if len(entries) > 0 {
		p.SetEntrypoints(entries...)
	}
	return p, nil
}
