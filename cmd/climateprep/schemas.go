package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"climateprep/domain/schema"

	"github.com/spf13/cobra"
)

func newSchemasCmd(a *cliApp) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List the available domain schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := schema.NewRegistry()
			if path := a.cfg.Pipeline.SchemaFile; path != "" {
				if _, err := registry.LoadFile(path); err != nil {
					return err
				}
			}

			summaries := make([]schema.Summary, 0)
			for _, s := range registry.List() {
				summaries = append(summaries, s.Summarize())
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			case "table":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tREQUIRED\tOPTIONAL")
				for _, s := range summaries {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, joinOrDash(s.RequiredFields), joinOrDash(s.OptionalFields))
				}
				return tw.Flush()
			}
			return fmt.Errorf("unknown output format %q (use table or json)", format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	return cmd
}

func joinOrDash(fields []string) string {
	if len(fields) == 0 {
		return "-"
	}
	return strings.Join(fields, ", ")
}
