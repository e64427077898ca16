package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/sheetcheck/internal/report"
	"github.com/JonMunkholm/sheetcheck/internal/schema"
	"github.com/spf13/cobra"
)

type schemaSummary struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Columns []string `json:"columns"`
}

func newSchemasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List available schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := registerSchemaDir(cmd); err != nil {
				return err
			}

			defs := schema.All()
			summaries := make([]schemaSummary, len(defs))
			for i, d := range defs {
				summaries[i] = schemaSummary{Key: d.Key, Label: d.Label, Columns: d.ColumnKeys()}
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return report.WriteJSON(cmd.OutOrStdout(), summaries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tLABEL\tCOLUMNS")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Key, s.Label, strings.Join(s.Columns, ", "))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}
