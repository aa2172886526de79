package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hlop3z/litestore/internal/cli"
	"github.com/hlop3z/litestore/pkg/litestore"
)

// columnsCmd shows the live columns of one table.
func columnsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table>",
		Short: "Show the live columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, closeFn, err := describe(cmd, g, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			table := cli.NewTable("COLUMN", "TYPE", "NOT NULL", "KEY", "DEFAULT")
			for _, c := range info.Columns {
				def := ""
				if c.Default.Valid {
					def = c.Default.String
				}
				table.AddRow(c.Name, c.Type, yesNo(c.NotNull), yesNo(c.PrimaryKey), def)
			}
			fmt.Fprint(cmd.OutOrStdout(), table.String())
			return nil
		},
	}
}

// indexesCmd shows the indexes and outgoing foreign keys of one table.
func indexesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes <table>",
		Short: "Show indexes and foreign keys of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, closeFn, err := describe(cmd, g, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			if len(info.Indexes) == 0 {
				fmt.Fprintln(out, "No indexes.")
			} else {
				table := cli.NewTable("INDEX", "COLUMNS", "UNIQUE", "ORIGIN")
				for _, idx := range info.Indexes {
					table.AddRow(idx.Name, strings.Join(idx.Columns, ", "), yesNo(idx.Unique), origin(idx.Origin))
				}
				fmt.Fprint(out, table.String())
			}

			if len(info.ForeignKeys) > 0 {
				fmt.Fprintln(out)
				list := cli.NewList()
				for _, fk := range info.ForeignKeys {
					list.AddInfo(fmt.Sprintf("(%s) -> %s(%s) %s",
						strings.Join(fk.Columns, ", "),
						fk.RefTable,
						strings.Join(fk.RefColumns, ", "),
						cli.Dim("on delete "+strings.ToLower(fk.OnDelete)+", on update "+strings.ToLower(fk.OnUpdate)),
					))
				}
				fmt.Fprint(out, list.String())
			}
			return nil
		},
	}
}

func describe(cmd *cobra.Command, g *globals, name string) (*litestore.TableInfo, func(), error) {
	ctx := cmd.Context()
	store, db, err := openDatabase(ctx, g)
	if err != nil {
		return nil, nil, err
	}
	info, err := db.Describe(ctx, name)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return info, func() { store.Close() }, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func origin(o string) string {
	switch o {
	case "c":
		return "index"
	case "u":
		return "unique"
	case "pk":
		return "primary key"
	default:
		return o
	}
}
