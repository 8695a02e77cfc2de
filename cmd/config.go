package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tablechat-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or modify configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		fmt.Printf("provider:           %s\n", cfg.Provider)
		fmt.Printf("model:              %s\n", cfg.Model)
		fmt.Printf("api_key:            %s\n", mask(cfg.APIKey))
		fmt.Printf("max_tokens:         %d\n", cfg.MaxTokens)
		fmt.Printf("temperature:        %.2f\n", cfg.Temperature)
		fmt.Printf("plots_dir:          %s\n", cfg.PlotsDir)
		fmt.Printf("history_path:       %s\n", cfg.HistoryPath)
		fmt.Printf("http_timeout_sec:   %d\n", cfg.HTTPTimeoutSec)
		fmt.Printf("retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Printf("retry_base_delay:   %dms\n", cfg.RetryBaseDelayMs)
		fmt.Printf("retry_max_delay:    %dms\n", cfg.RetryMaxDelayMs)
		fmt.Printf("ollama_host:        %s\n", cfg.OllamaHost)
		fmt.Printf("ollama_timeout_sec: %d\n", cfg.OllamaTimeoutSec)
		if cfg.ModelsCatalogURL != "" {
			fmt.Printf("models_catalog_url: %s\n", cfg.ModelsCatalogURL)
			fmt.Printf("models_auto_sync:   %t\n", cfg.ModelsAutoSync)
			fmt.Printf("models_merge:       %t\n", cfg.ModelsMerge)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value and persist it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		key, value := args[0], args[1]
		if err := applyConfigKey(cfg, key, value); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		if key == "api_key" {
			value = mask(value)
		}
		fmt.Printf("✓ Set %s = %s\n", key, value)
		return nil
	},
}

func applyConfigKey(c *cfgpkg.Global, key, value string) error {
	switch key {
	case "api_key":
		c.APIKey = value
	case "provider":
		c.Provider = value
	case "model":
		c.Model = value
	case "plots_dir":
		c.PlotsDir = value
	case "history_path":
		c.HistoryPath = value
	case "ollama_host":
		c.OllamaHost = value
	case "models_catalog_url":
		c.ModelsCatalogURL = value
	case "max_tokens", "http_timeout_sec", "retry_max_attempts",
		"retry_base_delay_ms", "retry_max_delay_ms", "ollama_timeout_sec":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
		switch key {
		case "max_tokens":
			c.MaxTokens = n
		case "http_timeout_sec":
			c.HTTPTimeoutSec = n
		case "retry_max_attempts":
			c.RetryMaxAttempts = n
		case "retry_base_delay_ms":
			c.RetryBaseDelayMs = n
		case "retry_max_delay_ms":
			c.RetryMaxDelayMs = n
		case "ollama_timeout_sec":
			c.OllamaTimeoutSec = n
		}
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("temperature must be a number in [0, 2]")
		}
		c.Temperature = f
	case "models_auto_sync", "models_merge":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
		if key == "models_auto_sync" {
			c.ModelsAutoSync = b
		} else {
			c.ModelsMerge = b
		}
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// mask hides all but the last 4 characters of a secret.
func mask(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
