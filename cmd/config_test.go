package cmd

import (
	"testing"

	cfgpkg "github.com/KaramelBytes/tablechat-cli/internal/config"
)

func TestApplyConfigKey(t *testing.T) {
	c := &cfgpkg.Global{}
	set := func(key, value string) {
		t.Helper()
		if err := applyConfigKey(c, key, value); err != nil {
			t.Fatalf("set %s=%s: %v", key, value, err)
		}
	}
	set("api_key", "sk-test")
	set("provider", "openrouter")
	set("model", "openai/gpt-4o-mini")
	set("plots_dir", "charts")
	set("max_tokens", "2048")
	set("temperature", "0.3")
	set("retry_max_attempts", "5")
	set("ollama_host", "http://10.0.0.2:11434")
	set("models_auto_sync", "true")

	if c.APIKey != "sk-test" || c.Provider != "openrouter" || c.Model != "openai/gpt-4o-mini" {
		t.Fatalf("string keys not applied: %+v", c)
	}
	if c.MaxTokens != 2048 || c.RetryMaxAttempts != 5 {
		t.Fatalf("int keys not applied: %+v", c)
	}
	if c.Temperature != 0.3 {
		t.Fatalf("temperature = %v, want 0.3", c.Temperature)
	}
	if !c.ModelsAutoSync {
		t.Fatalf("models_auto_sync not applied")
	}
}

func TestApplyConfigKeyRejectsBadValues(t *testing.T) {
	c := &cfgpkg.Global{}
	bad := []struct{ key, value string }{
		{"max_tokens", "not-a-number"},
		{"max_tokens", "-1"},
		{"http_timeout_sec", "1.5"},
		{"temperature", "3.0"},
		{"temperature", "cold"},
		{"models_merge", "maybe"},
		{"no_such_key", "x"},
	}
	for _, tc := range bad {
		if err := applyConfigKey(c, tc.key, tc.value); err == nil {
			t.Fatalf("expected error for %s=%s", tc.key, tc.value)
		}
	}
}

func TestMask(t *testing.T) {
	if got := mask(""); got != "(not set)" {
		t.Fatalf("mask empty = %q", got)
	}
	if got := mask("abc"); got != "****" {
		t.Fatalf("mask short = %q", got)
	}
	if got := mask("sk-test-123456"); got != "****3456" {
		t.Fatalf("mask long = %q", got)
	}
}
