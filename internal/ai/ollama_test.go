package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestOllamaGenerate(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Stream {
			http.Error(w, "unexpected stream request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "local answer"},
			"done":    true,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content != "local answer" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestOllamaGenerateStream(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"hello "},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"world"},"done":true}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var out string
	err := c.GenerateStream(ctx, GenerateRequest{Model: "llama3:latest", Messages: []Message{{Role: "user", Content: "hi"}}}, func(d string) { out += d })
	if err != nil {
		t.Fatalf("GenerateStream error: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("unexpected stream accumulation: %q", out)
	}
}

func TestOllamaModelNotFoundNotRetried(t *testing.T) {
	var hits int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'nope' not found"})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 3, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "nope", Messages: []Message{{Role: "user", Content: "hi"}}})
	var nfErr *ModelNotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected ModelNotFoundError, got: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("server hit %d times for a missing model, want 1", got)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	// Nothing listens on port 1.
	c := NewOllamaClient("http://127.0.0.1:1", time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var unreach *UnreachableError
	if !errors.As(err, &unreach) {
		t.Fatalf("expected UnreachableError, got: %v", err)
	}
}

func TestToOllamaRequestOptions(t *testing.T) {
	req := GenerateRequest{
		Model:       "llama3:latest",
		Messages:    []Message{{Role: "user", Content: "hi"}},
		MaxTokens:   64,
		Temperature: 0.2,
	}
	oreq := toOllamaRequest(req, true)
	if !oreq.Stream {
		t.Fatalf("expected stream=true")
	}
	if oreq.Options["num_predict"] != 64 {
		t.Fatalf("num_predict = %v", oreq.Options["num_predict"])
	}
	if oreq.Options["temperature"] != 0.2 {
		t.Fatalf("temperature = %v", oreq.Options["temperature"])
	}
}
