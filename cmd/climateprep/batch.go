package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"climateprep/app"

	"github.com/spf13/cobra"
)

func newBatchCmd(a *cliApp) *cobra.Command {
	var schemaName, format string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch <files...>",
		Short: "Clean and score many files concurrently",
		Long: `Process every file against the same schema. A file that fails does not stop
the others; the command exits non-zero when any file failed.

Example: climateprep batch data/*.csv --concurrency 8`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd.Context(), cmd.OutOrStdout(), args, schemaName, format, concurrency)
		},
	}

	cmd.Flags().StringVar(&schemaName, "schema", "auto", "Domain schema name, or auto to detect per file")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Files processed at once (default BATCH_CONCURRENCY)")

	return cmd
}

func (a *cliApp) runBatch(ctx context.Context, stdout io.Writer, paths []string, schemaName, format string, concurrency int) error {
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown output format %q (use table or json)", format)
	}

	items := make([]app.BatchItem, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		items = append(items, app.BatchItem{Filename: filepath.Base(path), Data: data})
	}

	c, err := a.container(ctx)
	if err != nil {
		return err
	}
	defer c.Shutdown(context.Background())

	batch := c.Batch
	if concurrency > 0 {
		batch = app.NewBatchService(c.Prep, app.BatchConfig{
			Concurrency:      concurrency,
			MaxInflightBytes: a.cfg.Pipeline.BatchMaxInflightBytes,
		})
	}

	results, err := batch.Process(ctx, items, schemaName, "")
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else if err := writeBatchTable(stdout, results); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func writeBatchTable(out io.Writer, results []app.BatchResult) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSCHEMA\tSCORE\tGRADE\tERROR")
	for _, r := range results {
		if r.Report == nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t%s: %s\n", r.Filename, r.Code, r.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\t\n", r.Filename, r.Report.Schema, r.Report.Assessment.OverallScore, r.Report.Assessment.Grade)
	}
	return tw.Flush()
}
