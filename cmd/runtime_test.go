package cmd

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/tablechat-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/tablechat-cli/internal/config"
)

func TestEffectiveModelPrecedence(t *testing.T) {
	c := &cfgpkg.Global{Model: "gemini-1.5-pro"}
	if got := effectiveModel(c, "gemini", "openai/gpt-4o"); got != "openai/gpt-4o" {
		t.Fatalf("flag should win, got %q", got)
	}
	if got := effectiveModel(c, "gemini", ""); got != "gemini-1.5-pro" {
		t.Fatalf("config should win, got %q", got)
	}
	if got := effectiveModel(&cfgpkg.Global{}, "ollama", ""); got != "llama3.1:8b-instruct" {
		t.Fatalf("expected provider tier default, got %q", got)
	}
	if got := effectiveModel(nil, "no-such-provider", ""); got != "gemini-1.5-flash" {
		t.Fatalf("expected final fallback, got %q", got)
	}
}

func TestBuildRuntimeProviderResolution(t *testing.T) {
	c := &cfgpkg.Global{Provider: "openrouter", HTTPTimeoutSec: 5, RetryMaxAttempts: 1}
	_, provider, err := buildRuntime(c, "")
	if err != nil {
		t.Fatalf("buildRuntime: %v", err)
	}
	if provider != "openrouter" {
		t.Fatalf("provider = %q, want openrouter (from config)", provider)
	}
	_, provider, err = buildRuntime(c, "ollama")
	if err != nil {
		t.Fatalf("buildRuntime: %v", err)
	}
	if provider != "ollama" {
		t.Fatalf("provider = %q, want ollama (flag beats config)", provider)
	}
	if _, _, err := buildRuntime(c, "bogus"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	if _, _, err := buildRuntime(nil, "gemini"); err == nil {
		t.Fatalf("expected error when config is not loaded")
	}
}

func TestFriendlyErrorHints(t *testing.T) {
	apiErr := &ai.APIError{StatusCode: 401, Message: "denied"}
	cases := []struct {
		name     string
		err      error
		provider string
		want     string
	}{
		{"auth gemini", &ai.AuthError{APIError: apiErr}, "gemini", "GEMINI_API_KEY"},
		{"auth openrouter", &ai.AuthError{APIError: apiErr}, "openrouter", "OPENROUTER_API_KEY"},
		{"unreachable ollama", &ai.UnreachableError{Host: "http://127.0.0.1:11434"}, "ollama", "Ollama is running"},
		{"unreachable hosted", &ai.UnreachableError{Host: "api"}, "gemini", "unreachable"},
		{"model missing ollama", &ai.ModelNotFoundError{APIError: &ai.APIError{StatusCode: 404}}, "ollama", "ollama pull"},
		{"model missing hosted", &ai.ModelNotFoundError{APIError: &ai.APIError{StatusCode: 404}}, "gemini", "tablechat models"},
		{"rate limited", &ai.RateLimitError{APIError: &ai.APIError{StatusCode: 429}, RetryAfter: 5 * time.Second}, "gemini", "~5s"},
		{"bad request", &ai.BadRequestError{APIError: &ai.APIError{StatusCode: 400}}, "gemini", "max-tokens"},
		{"quota", &ai.QuotaExceededError{APIError: &ai.APIError{StatusCode: 402}}, "gemini", "billing"},
		{"server", &ai.ServerError{APIError: &ai.APIError{StatusCode: 503}}, "gemini", "retry later"},
	}
	for _, tc := range cases {
		got := friendlyError(tc.err, tc.provider, "test-model")
		if got == nil || !strings.Contains(got.Error(), tc.want) {
			t.Fatalf("%s: hint %q not in %v", tc.name, tc.want, got)
		}
	}
}

func TestFriendlyErrorPassesThroughUnknown(t *testing.T) {
	plain := errors.New("something else")
	if got := friendlyError(plain, "gemini", "m"); got != plain {
		t.Fatalf("unknown errors must pass through, got %v", got)
	}
}
