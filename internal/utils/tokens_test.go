package utils

import "testing"

func TestCountTokens(t *testing.T) {
	if got := CountTokens(""); got != 0 {
		t.Fatalf("empty text: got %d, want 0", got)
	}
	if got := CountTokens("ab"); got != 1 {
		t.Fatalf("short text rounds up to 1 token, got %d", got)
	}
	if got := CountTokens("abcdefgh"); got != 2 {
		t.Fatalf("8 chars: got %d, want 2", got)
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	text := "0123456789abcdef"
	if got := TruncateToTokenLimit(text, 0); got != "" {
		t.Fatalf("limit 0: got %q, want empty", got)
	}
	if got := TruncateToTokenLimit(text, 100); got != text {
		t.Fatalf("large limit must not truncate, got %q", got)
	}
	if got := TruncateToTokenLimit(text, 2); got != "01234567" {
		t.Fatalf("limit 2 tokens: got %q, want first 8 chars", got)
	}
}
