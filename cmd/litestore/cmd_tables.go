package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hlop3z/litestore/internal/cli"
)

// tablesCmd lists the tables of a database file.
func tablesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables with their schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, db, err := openDatabase(ctx, g)
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := db.LiveTables(ctx)
			if err != nil {
				return err
			}
			versions, err := db.Versions(ctx)
			if err != nil {
				return err
			}
			applied := make(map[string]string, len(versions))
			for _, v := range versions {
				applied[v.Table] = v.Version
			}

			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "No tables.")
				return nil
			}

			table := cli.NewTable("TABLE", "COLUMNS", "VERSION")
			for _, name := range names {
				info, err := db.Describe(ctx, name)
				if err != nil {
					return err
				}
				version, ok := applied[name]
				if !ok {
					version = cli.Dim("unmanaged")
				}
				table.AddRow(name, strconv.Itoa(len(info.Columns)), version)
			}
			fmt.Fprint(out, table.String())
			fmt.Fprintln(out, cli.Dim(cli.FormatCount(table.Len(), "table", "tables")+" in "+db.Path()))
			return nil
		},
	}
}
