package cmd

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tablechat-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/tablechat-cli/internal/config"
	"github.com/KaramelBytes/tablechat-cli/internal/logger"
)

var (
	// Global flags (wired to config/viper)
	cfgFile string
	debug   bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
	log *zap.Logger = logger.Nop()

	// Interactive session flags
	rootModel    string
	rootProvider string
	rootPlotsDir string
	rootNoPlots  bool
	rootNoAI     bool
)

var rootCmd = &cobra.Command{
	Use:   "tablechat [csv-file]",
	Short: "TableChat: chat with your CSV data using an LLM",
	Long: `TableChat loads a CSV file, prints summary statistics, renders charts,
and answers natural-language questions about the data through an LLM
provider (Gemini by default, OpenRouter or a local Ollama optionally).

Run with a CSV path for the full pipeline (load, analyze, plots, chat),
or with no arguments for the interactive command loop.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath := ""
		if len(args) == 1 {
			csvPath = args[0]
		}
		return runSession(csvPath)
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tablechat/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")

	rootCmd.Flags().StringVar(&rootModel, "model", "", "model to chat with (overrides config)")
	rootCmd.Flags().StringVar(&rootProvider, "provider", "", "provider: gemini|openrouter|ollama (overrides config)")
	rootCmd.Flags().StringVar(&rootPlotsDir, "plots-dir", "", "directory for generated charts (overrides config)")
	rootCmd.Flags().BoolVar(&rootNoPlots, "no-plots", false, "skip chart generation in the pipeline")
	rootCmd.Flags().BoolVar(&rootNoAI, "no-ai", false, "skip the LLM analysis in the pipeline (offline summary only)")
}

func loadConfig() {
	log = logger.New(debug)
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}

	// Optional: auto-sync model catalog at startup
	if cfg.ModelsAutoSync && cfg.ModelsCatalogURL != "" {
		if err := fetchAndApplyCatalog(cfg.ModelsCatalogURL, cfg.ModelsMerge); err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: models auto-sync failed: %v\n", err)
		}
	}
	log.Debug("config loaded",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("http_timeout_sec", cfg.HTTPTimeoutSec))
}

// fetchAndApplyCatalog downloads a JSON model catalog and applies it in-memory.
func fetchAndApplyCatalog(url string, merge bool) error {
	client := &http.Client{Timeout: 20 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch: unexpected status %s", resp.Status)
	}
	var m map[string]ai.ModelInfo
	if err := decodeJSON(resp.Body, &m); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if merge {
		ai.MergeCatalog(m)
	} else {
		ai.OverrideCatalog(m)
	}
	return nil
}
