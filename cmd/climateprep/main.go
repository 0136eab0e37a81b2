package main

import (
	"context"
	"fmt"
	"os"

	"climateprep/internal/config"
	"climateprep/internal/container"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliApp carries the configuration shared by every command
type cliApp struct {
	cfg     *config.Config
	persist bool
}

func newRootCmd() *cobra.Command {
	a := &cliApp{}

	rootCmd := &cobra.Command{
		Use:   "climateprep",
		Short: "Clean and quality-score climate data files",
		Long: `climateprep reads CSV, Excel, JSON, Parquet and XML files, maps their
columns onto a climate domain schema, cleans them and scores their quality.

Configuration is read from the environment (and a .env file when present):
DATABASE_DRIVER, DATABASE_URL, MAX_UPLOAD_BYTES, BATCH_CONCURRENCY,
BATCH_MAX_INFLIGHT_BYTES, PROCESS_TIMEOUT, SCHEMA_FILE, LOG_LEVEL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&a.persist, "persist", false, "Save reports to the configured database")

	rootCmd.AddCommand(
		newProcessCmd(a),
		newBatchCmd(a),
		newSchemasCmd(a),
		newMigrateCmd(a),
	)
	return rootCmd
}

// container builds the pipeline. Reports stay in memory unless --persist is set.
func (a *cliApp) container(ctx context.Context) (*container.Container, error) {
	cfg := *a.cfg
	if !a.persist {
		cfg.Database.URL = ""
	}
	c, err := container.New(&cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
