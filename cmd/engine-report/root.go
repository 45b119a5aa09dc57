package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"engineatlas/internal/config"
	"engineatlas/internal/dataprocessing"
	"engineatlas/internal/dataset"
	"engineatlas/internal/infrastructure"
	"engineatlas/internal/pipeline"
	"engineatlas/internal/validation"
	"engineatlas/pkg/contracts"
)

var (
	cfgFile   string
	flagInput string
	verbose   bool

	cfg    *config.Config
	logger *slog.Logger
)

func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "engine-report",
		Short: "Engine Atlas batch tools: clean, cluster and report on the engine dataset",
		Long: `engine-report runs the Engine Atlas pipeline from the command line.

  clean    Run the cleaning pipeline and write the canonical CSV
  cluster  Cluster the cleaned dataset and write the augmented CSV
  report   Render the XLSX analytics workbook

The raw dataset defaults to the configured path (ATLAS_DATASET_PATH or
data/cars_engines.csv next to the binary); override it with --input.`,
		Version:       contracts.CurrentBuild().String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfgFile != "" {
				cfg, err = config.LoadFrom(cfgFile)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if flagInput != "" {
				cfg.Dataset.Path = flagInput
			}

			// Batch runs log to the console only, and stay quiet
			// unless asked otherwise.
			cfg.Logging.Output = "console"
			if verbose {
				cfg.Logging.Level = "debug"
			} else {
				cfg.Logging.Level = "warn"
			}

			logger, err = infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches config.yaml, configs/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagInput, "input", "i", "", "raw dataset CSV (overrides the configured path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(getCleanCmd())
	rootCmd.AddCommand(getClusterCmd())
	rootCmd.AddCommand(getReportCmd())

	return rootCmd
}

// cleanDataset runs the full cleaning pipeline over the configured raw
// file with a stage progress bar.
func cleanDataset(ctx context.Context) (*dataset.Table, error) {
	if err := validation.NewFileValidator(logger).ValidateDatasetFile(cfg.DatasetPath()); err != nil {
		return nil, err
	}

	pipe := dataprocessing.NewPipeline(logger, nil)
	pipe.SetDelimiter(cfg.DelimiterRune())

	bar := pb.Full.Start(len(pipe.Stages()))
	bar.Set("prefix", "Cleaning: ")
	bar.Set(pb.CleanOnFinish, true)
	pipe.SetProgressFunc(func(p pipeline.Progress) {
		if p.Stage != "" {
			bar.Set("prefix", fmt.Sprintf("%s: ", p.Stage))
		}
		bar.SetCurrent(int64(p.Completed))
	})
	defer bar.Finish()

	table, err := pipe.Clean(ctx, cfg.DatasetPath())
	if err != nil {
		return nil, fmt.Errorf("cleaning %s: %w", cfg.DatasetPath(), err)
	}
	return table, nil
}

// ensureOutputPath fails fast when the destination cannot be written,
// before any pipeline work starts.
func ensureOutputPath(path string) error {
	return validation.NewFileValidator(logger).ValidateOutputPath(path)
}

// printWrote reports the output file with a human readable size.
func printWrote(path string) {
	if info, err := os.Stat(path); err == nil {
		fmt.Printf("Wrote %s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
		return
	}
	fmt.Printf("Wrote %s\n", path)
}
