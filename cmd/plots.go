package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tablechat-cli/internal/dataset"
	"github.com/KaramelBytes/tablechat-cli/internal/visualizer"
)

var (
	plotsOutDir     string
	plotsMaxColumns int
	plotsBins       int
	plotsTopValues  int
)

var plotsCmd = &cobra.Command{
	Use:   "plots <file>",
	Short: "Generate charts for a CSV/TSV file",
	Long: `Renders distribution histograms, boxplots, top-value bar charts, and a
correlation heatmap for the file's columns as PNG images.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.Load(args[0], dataset.DefaultOptions())
		if err != nil {
			return err
		}

		opt := visualizer.DefaultOptions()
		if plotsMaxColumns > 0 {
			opt.MaxColumns = plotsMaxColumns
		}
		if plotsBins > 0 {
			opt.Bins = plotsBins
		}
		if plotsTopValues > 0 {
			opt.TopValues = plotsTopValues
		}

		outDir := plotsOutDir
		if outDir == "" && cfg != nil && cfg.PlotsDir != "" {
			outDir = cfg.PlotsDir
		}
		if outDir == "" {
			outDir = "plots"
		}

		paths, err := visualizer.New(opt, log).Generate(ds, outDir)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Generated %d visualizations in '%s'\n", len(paths), outDir)
		for _, p := range paths {
			fmt.Printf("  - %s\n", p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotsCmd)
	plotsCmd.Flags().StringVarP(&plotsOutDir, "out", "o", "", "output directory for charts (default from config, else 'plots')")
	plotsCmd.Flags().IntVar(&plotsMaxColumns, "max-columns", 0, "max numeric/categorical columns to chart (default 5)")
	plotsCmd.Flags().IntVar(&plotsBins, "bins", 0, "histogram bin count (default 30)")
	plotsCmd.Flags().IntVar(&plotsTopValues, "top-values", 0, "bars per count plot (default 10)")
}
