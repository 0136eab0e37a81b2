package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"climateprep/adapters/writer"
	"climateprep/app"
	"climateprep/domain/quality"
	"climateprep/internal/scoring"

	"github.com/spf13/cobra"
)

type processOptions struct {
	schema   string
	format   string
	output   string
	cleaned  string
	minScore float64
}

func newProcessCmd(a *cliApp) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Clean and score one data file",
		Long: `Run one file through reading, column mapping, cleaning and scoring and
print its quality report.

Example: climateprep process emissions.csv --schema carbon_footprint --format markdown --cleaned cleaned.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProcess(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.schema, "schema", "auto", "Domain schema name, or auto to detect it")
	cmd.Flags().StringVar(&opts.format, "format", "markdown", "Report format: json|markdown|html")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&opts.cleaned, "cleaned", "", "Write the cleaned table to this file (.csv, .json, .xlsx or .parquet)")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", 0, "Fail when the overall score is below this value")

	return cmd
}

func (a *cliApp) runProcess(ctx context.Context, stdout io.Writer, path string, opts processOptions) error {
	var cleanedFormat writer.Format
	if opts.cleaned != "" {
		f, err := writer.FormatFor(opts.cleaned)
		if err != nil {
			return fmt.Errorf("--cleaned: %w", err)
		}
		cleanedFormat = f
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	c, err := a.container(ctx)
	if err != nil {
		return err
	}
	defer c.Shutdown(context.Background())

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Pipeline.ProcessTimeout)
	defer cancel()

	res, err := c.Prep.Process(ctx, app.UploadRequest{
		Data:     data,
		Filename: filepath.Base(path),
		Schema:   opts.schema,
	})
	if err != nil {
		return err
	}

	rendered, err := renderReport(res.Report, opts.format)
	if err != nil {
		return err
	}
	if err := writeOutput(stdout, opts.output, rendered); err != nil {
		return err
	}

	if opts.cleaned != "" {
		if err := writeCleaned(opts.cleaned, cleanedFormat, res); err != nil {
			return err
		}
	}

	if score := res.Report.Assessment.OverallScore; score < opts.minScore {
		return fmt.Errorf("overall score %.3f is below --min-score %.3f", score, opts.minScore)
	}
	return nil
}

func renderReport(r *quality.Report, format string) ([]byte, error) {
	switch format {
	case "json":
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "markdown", "md":
		return []byte(scoring.RenderMarkdown(r)), nil
	case "html":
		return scoring.RenderHTML(r), nil
	}
	return nil, fmt.Errorf("unknown report format %q (use json, markdown or html)", format)
}

func writeOutput(stdout io.Writer, path string, content []byte) error {
	if path == "" {
		_, err := stdout.Write(content)
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func writeCleaned(path string, format writer.Format, res *app.UploadResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writer.Write(f, res.Cleaned, format); err != nil {
		f.Close()
		return fmt.Errorf("failed to write cleaned table: %w", err)
	}
	return f.Close()
}
