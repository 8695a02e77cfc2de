package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tablechat-cli/internal/ai"
)

var (
	modelsSyncURL   string
	modelsSyncFile  string
	modelsSyncMerge bool
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models with context windows and pricing",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := ""
		if cfg != nil {
			provider = cfg.Provider
		}
		fmt.Printf("%-36s %12s %12s %12s\n", "MODEL", "CONTEXT", "IN $/1K", "OUT $/1K")
		for _, name := range ai.CatalogNames() {
			mi, _ := ai.LookupModel(name)
			fmt.Printf("%-36s %12d %12.4f %12.4f\n", name, mi.ContextTokens, mi.InputPerK, mi.OutputPerK)
		}
		fmt.Println()
		for _, tier := range []string{"cheap", "balanced", "high-context"} {
			if name, ok := ai.RecommendModel(provider, tier); ok {
				fmt.Printf("Recommended (%s): %s\n", tier, name)
			}
		}
		return nil
	},
}

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load a model catalog from a URL or a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case modelsSyncURL != "":
			if err := fetchAndApplyCatalog(modelsSyncURL, modelsSyncMerge); err != nil {
				return err
			}
		case modelsSyncFile != "":
			m, err := ai.LoadCatalogFromJSON(modelsSyncFile)
			if err != nil {
				return err
			}
			if modelsSyncMerge {
				ai.MergeCatalog(m)
			} else {
				ai.OverrideCatalog(m)
			}
		default:
			return fmt.Errorf("provide --url or --file")
		}
		fmt.Printf("✓ Catalog now has %d models\n", len(ai.Catalog()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsSyncCmd)
	modelsSyncCmd.Flags().StringVar(&modelsSyncURL, "url", "", "catalog URL (JSON object of model entries)")
	modelsSyncCmd.Flags().StringVar(&modelsSyncFile, "file", "", "catalog file path")
	modelsSyncCmd.Flags().BoolVar(&modelsSyncMerge, "merge", true, "merge into the built-in catalog instead of replacing it")
}
