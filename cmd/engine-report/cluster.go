package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"engineatlas/internal/analytics"
	"engineatlas/internal/cluster"
	"engineatlas/internal/config"
	"engineatlas/internal/exporter"
)

func getClusterCmd() *cobra.Command {
	var outPath string
	var k int

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster the cleaned dataset and write the augmented CSV",
		Long: `Cluster runs the cleaning pipeline, then k-means over the rows that
carry all of hp, acceleration, fuel consumption and cylinder count,
and writes those rows augmented with cluster_id, pca_x, pca_y and
cluster_name columns.

Examples:
  engine-report cluster
  engine-report cluster -k 6 --out data/exports/engines_clustered.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureOutputPath(outPath); err != nil {
				return err
			}
			ctx := cmd.Context()

			table, err := cleanDataset(ctx)
			if err != nil {
				return err
			}

			clustered, err := cluster.NewEngine(logger).Compute(ctx, table, k)
			if err != nil {
				return fmt.Errorf("clustering failed: %w", err)
			}

			if err := exporter.New(logger).WriteCSVFile(outPath, clustered, exporter.CSVOptions{}); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}

			fmt.Printf("Clustered %s of %s rows into %d groups\n",
				humanize.Comma(int64(clustered.NumRows())),
				humanize.Comma(int64(table.NumRows())), k)
			for _, s := range analytics.NewAnalyzer(logger).ClusterSummaries(clustered) {
				fmt.Printf("  %-12s %s rows\n", s.Name, humanize.Comma(int64(s.Count)))
			}
			printWrote(outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "engines_clustered.csv", "output CSV path")
	cmd.Flags().IntVarP(&k, "clusters", "k", config.ClusterDefaultK, "number of clusters")
	return cmd
}
