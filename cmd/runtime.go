package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/KaramelBytes/tablechat-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/tablechat-cli/internal/config"
)

// buildRuntime resolves the provider from flag > config and constructs its
// runtime with the configured HTTP/retry knobs.
func buildRuntime(cfg *cfgpkg.Global, providerFlag string) (ai.Runtime, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("configuration not loaded")
	}
	provider := providerFlag
	if provider == "" {
		provider = cfg.Provider
	}
	if provider == "" {
		provider = ai.ProviderGemini
	}
	rc := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		RetryMax:    cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      cfg.APIKey,
		Host:        cfg.OllamaHost,
	}
	if provider == ai.ProviderOllama || provider == ai.ProviderLocal {
		if cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
	}
	rt, ok := ai.GetRuntime(provider, rc)
	if !ok {
		return nil, "", fmt.Errorf("unknown provider: %s (use gemini|openrouter|ollama)", provider)
	}
	return rt, provider, nil
}

// effectiveModel resolves the model from flag > config > provider tier default.
func effectiveModel(cfg *cfgpkg.Global, provider, modelFlag string) string {
	if modelFlag != "" {
		return modelFlag
	}
	if cfg != nil && cfg.Model != "" {
		return cfg.Model
	}
	if name, ok := ai.RecommendModel(provider, "balanced"); ok {
		return name
	}
	return "gemini-1.5-flash"
}

// friendlyError maps typed API errors to actionable hints.
func friendlyError(err error, provider, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama || provider == ai.ProviderLocal {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running (see https://ollama.com) and host is correct. You can set TABLECHAT_OLLAMA_HOST or config 'ollama_host'. Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		switch provider {
		case ai.ProviderOpenRouter:
			return fmt.Errorf("authentication failed: set OPENROUTER_API_KEY or add api_key in config (~/.tablechat/config.yaml): %w", err)
		default:
			return fmt.Errorf("authentication failed: set GEMINI_API_KEY (https://aistudio.google.com/apikey) or add api_key in config (~/.tablechat/config.yaml): %w", err)
		}
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama || provider == ai.ProviderLocal {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model: %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name or list known models via 'tablechat models': %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try reducing the dataset context or max-tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	default:
		return err
	}
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
