package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hlop3z/litestore/internal/cli"
)

// versionsCmd shows the schema version recorded for every migrated table.
func versionsCmd(g *globals) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Show the applied schema version of every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, db, err := openDatabase(ctx, g)
			if err != nil {
				return err
			}
			defer store.Close()

			versions, err := db.Versions(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				items := make([]map[string]any, len(versions))
				for i, v := range versions {
					items[i] = map[string]any{
						"table":       v.Table,
						"version":     v.Version,
						"fingerprint": v.Fingerprint,
						"applied_at":  v.AppliedAt.Format(time.RFC3339),
					}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"count": len(items), "tables": items})
			}

			if len(versions) == 0 {
				fmt.Fprintln(out, "No migrated tables.")
				return nil
			}
			table := cli.NewTable("TABLE", "VERSION", "APPLIED AT", "FINGERPRINT")
			for _, v := range versions {
				fp := v.Fingerprint
				if len(fp) > 12 {
					fp = fp[:12]
				}
				table.AddRow(v.Table, v.Version, v.AppliedAt.Format("2006-01-02 15:04:05"), cli.Dim(fp))
			}
			fmt.Fprint(out, table.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
