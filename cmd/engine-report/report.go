package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"engineatlas/internal/analytics"
	"engineatlas/internal/cluster"
	"engineatlas/internal/config"
	"engineatlas/internal/exporter"
)

func getReportCmd() *cobra.Command {
	var outPath string
	var k int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the XLSX analytics workbook",
		Long: `Report runs the cleaning pipeline and renders the analytics workbook:
an overview sheet, yearly trends, the leaderboards and the cluster
summary.

Examples:
  engine-report report
  engine-report report -k 6 --out data/exports/engine-analytics.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureOutputPath(outPath); err != nil {
				return err
			}
			ctx := cmd.Context()

			table, err := cleanDataset(ctx)
			if err != nil {
				return err
			}

			analyzer := analytics.NewAnalyzer(logger)
			data := exporter.WorkbookData{
				Overview:     analyzer.Overview(table),
				Trends:       analyzer.Trends(table),
				Leaderboards: analyzer.Leaderboards(table),
			}

			clustered, err := cluster.NewEngine(logger).Compute(ctx, table, k)
			if err != nil {
				// The workbook is still useful without the cluster
				// sheet, e.g. on tiny filtered extracts.
				fmt.Fprintf(cmd.ErrOrStderr(), "skipping cluster sheet: %v\n", err)
			} else {
				data.Clusters = analyzer.ClusterSummaries(clustered)
			}

			if err := exporter.New(logger).WriteWorkbookFile(outPath, data); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}

			printWrote(outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "engine-analytics.xlsx", "output workbook path")
	cmd.Flags().IntVarP(&k, "clusters", "k", config.ClusterDefaultK, "number of clusters for the summary sheet")
	return cmd
}
