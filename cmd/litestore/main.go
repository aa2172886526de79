// Package main provides the litestore inspection CLI.
// It reads database files written by the litestore package without binding
// any model, so it never migrates anything.
//
// Usage:
//
//	litestore tables                 # List tables with their schema versions
//	litestore columns <table>        # Show the live columns of a table
//	litestore indexes <table>        # Show indexes and foreign keys
//	litestore query <sql> [args...]  # Run a read query
//	litestore versions               # Show the version bookkeeping
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hlop3z/litestore/internal/cli"
)

// version is set via ldflags during build: -ldflags="-X main.version=v1.0.0"
var version = "dev"

// globals holds the persistent flags shared by every command.
type globals struct {
	configFile string
	dir        string
	identifier string
	logLevel   levelFlag
	noColor    bool
}

// levelFlag is a --log-level value checked when flags are parsed.
type levelFlag struct {
	level slog.Level
	set   bool
}

var _ pflag.Value = (*levelFlag)(nil)

func (f *levelFlag) String() string {
	if !f.set {
		return ""
	}
	return strings.ToLower(f.level.String())
}

func (f *levelFlag) Set(s string) error {
	if err := f.level.UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("want debug, info, warn or error")
	}
	f.set = true
	return nil
}

func (f *levelFlag) Type() string { return "level" }

func rootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "litestore",
		Short:         "Inspect litestore database files",
		Long:          `litestore lists the tables, columns, indexes and schema versions of the SQLite files a litestore application writes, and runs ad hoc queries against them.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := cli.Detect(cmd.OutOrStdout())
			if g.noColor {
				cfg.Mode = cli.ModePlain
			}
			cli.SetDefault(cfg)
		},
	}

	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", "litestore.yaml", "Path to config file")
	root.PersistentFlags().StringVarP(&g.dir, "dir", "d", "", "Directory holding the database files")
	root.PersistentFlags().StringVarP(&g.identifier, "identifier", "i", "", "Database identifier (file name without .sqlite)")
	root.PersistentFlags().Var(&g.logLevel, "log-level", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		tablesCmd(g),
		columnsCmd(g),
		indexesCmd(g),
		queryCmd(g),
		versionsCmd(g),
	)
	return root
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprint(os.Stderr, cli.FormatError(err))
		os.Exit(1)
	}
}
