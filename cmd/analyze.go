package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tablechat-cli/internal/chatbot"
	"github.com/KaramelBytes/tablechat-cli/internal/dataset"
	"github.com/KaramelBytes/tablechat-cli/internal/utils"
)

var (
	anaOutputPath string
	anaDelimiter  string
	anaSampleRows int
	anaMaxRows    int
	anaGroupBy    []string
	anaCorr       bool
	anaCorrGroups bool
	anaDecimal    string
	anaThousands  string
	anaOutliers   bool
	anaOutlierThr float64
	anaAI         bool
	anaModel      string
	anaProvider   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a CSV/TSV and produce a concise summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt, err := analysisOptions(cmd)
		if err != nil {
			return err
		}
		ds, err := dataset.Load(path, opt)
		if err != nil {
			return err
		}
		md := ds.Summary()

		if anaAI {
			insights, err := aiInsights(ds)
			if err != nil {
				return err
			}
			md += "\n[AI INSIGHTS]\n" + insights + "\n"
		}

		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Println(md)
		return nil
	},
}

// analysisOptions maps the shared analysis flags onto dataset.Options.
func analysisOptions(cmd *cobra.Command) (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	if anaSampleRows > 0 {
		opt.SampleRows = anaSampleRows
	}
	opt.MaxRows = anaMaxRows
	if anaDelimiter != "" {
		switch anaDelimiter {
		case ",":
			opt.Delimiter = ','
		case "\t", "tab":
			opt.Delimiter = '\t'
		case ";":
			opt.Delimiter = ';'
		default:
			return opt, fmt.Errorf("unsupported --delimiter: %s", anaDelimiter)
		}
	}
	switch strings.ToLower(strings.TrimSpace(anaDecimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", anaDecimal)
	}
	switch strings.ToLower(strings.TrimSpace(anaThousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", anaThousands)
	}
	opt.GroupBy = anaGroupBy
	if cmd.Flags().Changed("correlations") {
		opt.Correlations = anaCorr
	}
	opt.CorrPerGroup = anaCorrGroups
	if cmd.Flags().Changed("outliers") {
		opt.Outliers = anaOutliers
	}
	if anaOutlierThr > 0 {
		opt.OutlierThreshold = anaOutlierThr
	}
	return opt, nil
}

// aiInsights runs one analysis round trip over an already-loaded dataset.
func aiInsights(ds *dataset.Dataset) (string, error) {
	rt, provider, err := buildRuntime(cfg, anaProvider)
	if err != nil {
		return "", err
	}
	model := effectiveModel(cfg, provider, anaModel)
	bot := chatbot.New(rt, chatbot.Config{
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, nil, log)
	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)
	defer cancel()
	if err := bot.Adopt(ds); err != nil {
		return "", err
	}
	answer, err := bot.Analyze(ctx, "")
	if err != nil {
		return "", friendlyError(err, provider, model)
	}
	return answer, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	analyzeCmd.Flags().StringVar(&anaDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	analyzeCmd.Flags().StringVar(&anaThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 100000, "maximum rows to process (0 = unlimited)")
	analyzeCmd.Flags().StringSliceVar(&anaGroupBy, "group-by", nil, "comma-separated column names to group by (repeatable)")
	analyzeCmd.Flags().BoolVar(&anaCorr, "correlations", true, "compute Pearson correlations among numeric columns")
	analyzeCmd.Flags().BoolVar(&anaCorrGroups, "corr-per-group", false, "compute correlation pairs within each group (may be slower)")
	analyzeCmd.Flags().BoolVar(&anaOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	analyzeCmd.Flags().Float64Var(&anaOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	analyzeCmd.Flags().BoolVar(&anaAI, "ai", false, "also ask the model for narrative insights")
	analyzeCmd.Flags().StringVar(&anaModel, "model", "", "model for --ai (overrides config)")
	analyzeCmd.Flags().StringVar(&anaProvider, "provider", "", "provider for --ai: gemini|openrouter|ollama")
}
