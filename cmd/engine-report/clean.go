package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"engineatlas/internal/exporter"
)

func getCleanCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Run the cleaning pipeline and write the canonical CSV",
		Long: `Clean loads the raw engine CSV, normalizes the headers, coerces the
numeric columns, clips outliers and derives the engineered features,
then writes the canonical dataset as CSV.

Examples:
  engine-report clean
  engine-report clean --input raw/cars.csv --out data/exports/engines_clean.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureOutputPath(outPath); err != nil {
				return err
			}
			start := time.Now()

			table, err := cleanDataset(cmd.Context())
			if err != nil {
				return err
			}

			if err := exporter.New(logger).WriteCSVFile(outPath, table, exporter.CSVOptions{}); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}

			fmt.Printf("Cleaned %s rows, %d columns in %s\n",
				humanize.Comma(int64(table.NumRows())), table.NumCols(),
				time.Since(start).Round(time.Millisecond))
			printWrote(outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "engines_clean.csv", "output CSV path")
	return cmd
}
