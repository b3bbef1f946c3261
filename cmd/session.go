package main

import (
	"fmt"

	"gbinsym/internal/session"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var sessionCommand = &cobra.Command{
	Use:   "session",
	Short: "inspect a stored analysis session",
	Long:  ``,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var sessionImagesCommand = &cobra.Command{
	Use:   "images",
	Short: "list stored images",
	RunE: func(*cobra.Command, []string) error {
		return withSession(func(s *session.Session) error {
			images, err := s.Images()
			if err != nil {
				return err
			}
			for _, img := range images {
				fmt.Printf("%s  %-6s base=%#x size=%d\n", img.Hash, img.Arch, img.Base, img.Size)
			}
			return nil
		})
	},
}

var sessionCFGCommand = &cobra.Command{
	Use:   "cfg",
	Short: "print a stored control flow graph",
	RunE: func(*cobra.Command, []string) error {
		return withSession(func(s *session.Session) error {
			if ImageHash == "" {
				return errors.New("--image is required")
			}
			g, err := s.GetCFG(ImageHash, GraphName)
			if err != nil {
				return err
			}
			fmt.Print(g)
			return nil
		})
	},
}

var sessionMapperCommand = &cobra.Command{
	Use:   "mapper",
	Short: "print the stored state of a block",
	RunE: func(*cobra.Command, []string) error {
		return withSession(func(s *session.Session) error {
			if ImageHash == "" || BlockName == "" {
				return errors.New("--image and --block are required")
			}
			m, err := s.GetMapper(ImageHash, BlockName)
			if err != nil {
				return err
			}
			fmt.Println(m)
			return nil
		})
	},
}

var (
	ImageHash string
	GraphName string
	BlockName string
)

func init() {
	sessionCommand.PersistentFlags().StringVar(&SessionPath, "db", "", "session sqlite file, default: session.path of the config")
	sessionCFGCommand.Flags().StringVar(&ImageHash, "image", "", "image hash")
	sessionCFGCommand.Flags().StringVar(&GraphName, "name", "lforward", "graph name (the strategy that built it)")
	sessionMapperCommand.Flags().StringVar(&ImageHash, "image", "", "image hash")
	sessionMapperCommand.Flags().StringVar(&BlockName, "block", "", "block address, e.g. 0x1000")
	sessionCommand.AddCommand(sessionImagesCommand, sessionCFGCommand, sessionMapperCommand)
}

func withSession(fn func(*session.Session) error) error {
	path := SessionPath
	if path == "" {
		path = conf.Session.Path
	}
	if path == "" {
		return errors.New("no session: use --db or session.path")
	}
	s, err := session.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
