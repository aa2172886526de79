package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hlop3z/litestore/internal/cli"
)

// queryCmd runs one SQL query and prints its rows.
func queryCmd(g *globals) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "query <sql> [args...]",
		Short: "Run a query and print the rows",
		Long:  `Runs one SQL statement against the database. Extra arguments bind to ? placeholders in order.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, db, err := openDatabase(ctx, g)
			if err != nil {
				return err
			}
			defer store.Close()

			params := make([]any, len(args)-1)
			for i, a := range args[1:] {
				params[i] = a
			}

			start := time.Now()
			rs, err := db.QueryRows(ctx, args[0], params...)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			out := cmd.OutOrStdout()
			if jsonOutput {
				rows := make([]map[string]any, len(rs.Rows))
				for i, r := range rs.Rows {
					m := make(map[string]any, len(rs.Columns))
					for j, c := range rs.Columns {
						if b, ok := r[j].([]byte); ok {
							m[c] = cli.Cell(b)
							continue
						}
						m[c] = r[j]
					}
					rows[i] = m
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"columns": rs.Columns,
					"count":   len(rows),
					"rows":    rows,
				})
			}

			if len(rs.Columns) == 0 {
				fmt.Fprint(out, cli.FormatSuccess("statement executed"))
				return nil
			}
			table := cli.NewTable(rs.Columns...)
			for _, r := range rs.Rows {
				cells := make([]string, len(r))
				for i, v := range r {
					cells[i] = cli.Cell(v)
				}
				table.AddRow(cells...)
			}
			fmt.Fprint(out, table.String())
			fmt.Fprintln(out, cli.Dim(fmt.Sprintf("%s (%s)", cli.FormatCount(table.Len(), "row", "rows"), elapsed.Round(time.Microsecond))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
