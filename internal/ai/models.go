package ai

import (
	"encoding/json"
	"os"
	"sort"
)

// Model metadata and simple pricing helpers for UX warnings.
// Prices are illustrative and should be verified against provider docs.

type ModelInfo struct {
	Name          string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	// Gemini (OpenAI-compatibility endpoint names)
	"gemini-1.5-flash": {
		Name:          "gemini-1.5-flash",
		ContextTokens: 1000000,
		InputPerK:     0.0002,
		OutputPerK:    0.0008,
	},
	"gemini-1.5-pro": {
		Name:          "gemini-1.5-pro",
		ContextTokens: 1000000,
		InputPerK:     0.00125,
		OutputPerK:    0.005,
	},
	"gemini-2.0-flash": {
		Name:          "gemini-2.0-flash",
		ContextTokens: 1000000,
		InputPerK:     0.0001,
		OutputPerK:    0.0004,
	},
	// OpenRouter names
	"openai/gpt-4o-mini": {
		Name:          "openai/gpt-4o-mini",
		ContextTokens: 128000,
		InputPerK:     0.0006,
		OutputPerK:    0.0024,
	},
	"openai/gpt-4o": {
		Name:          "openai/gpt-4o",
		ContextTokens: 128000,
		InputPerK:     0.005,
		OutputPerK:    0.015,
	},
	"anthropic/claude-3.5-sonnet": {
		Name:          "anthropic/claude-3.5-sonnet",
		ContextTokens: 200000,
		InputPerK:     0.003,
		OutputPerK:    0.015,
	},
	"google/gemini-1.5-flash": {
		Name:          "google/gemini-1.5-flash",
		ContextTokens: 1000000,
		InputPerK:     0.0002,
		OutputPerK:    0.0008,
	},
	"meta-llama/llama-3.1-8b-instruct": {
		Name:          "meta-llama/llama-3.1-8b-instruct",
		ContextTokens: 131072,
		InputPerK:     0.0,
		OutputPerK:    0.0,
	},
	// Common local (Ollama) tags
	"llama3:latest": {
		Name:          "llama3:latest",
		ContextTokens: 8192,
		InputPerK:     0.0,
		OutputPerK:    0.0,
	},
	"llama3.1:8b-instruct": {
		Name:          "llama3.1:8b-instruct",
		ContextTokens: 8192,
		InputPerK:     0.0,
		OutputPerK:    0.0,
	},
	"mistral:7b-instruct": {
		Name:          "mistral:7b-instruct",
		ContextTokens: 8192,
		InputPerK:     0.0,
		OutputPerK:    0.0,
	},
	"phi3:mini-4k-instruct": {
		Name:          "phi3:mini-4k-instruct",
		ContextTokens: 4096,
		InputPerK:     0.0,
		OutputPerK:    0.0,
	},
}

// Tier recommendations per provider.
var tiers = map[string]map[string]string{
	"gemini": {
		"cheap":        "gemini-2.0-flash",
		"balanced":     "gemini-1.5-flash",
		"high-context": "gemini-1.5-pro",
	},
	"openrouter": {
		"cheap":        "openai/gpt-4o-mini",
		"balanced":     "anthropic/claude-3.5-sonnet",
		"high-context": "google/gemini-1.5-flash",
	},
	"ollama": {
		"cheap":        "phi3:mini-4k-instruct",
		"balanced":     "llama3.1:8b-instruct",
		"high-context": "mistral:7b-instruct",
	},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// RecommendModel returns the model name for a provider/tier combination.
// An empty provider defaults to gemini.
func RecommendModel(provider, tier string) (string, bool) {
	if provider == "" {
		provider = ProviderGemini
	}
	t, ok := tiers[provider]
	if !ok {
		return "", false
	}
	name, ok := t[tier]
	return name, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// LoadCatalogFromJSON loads a JSON object map[string]ModelInfo from a file path.
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	var m map[string]ModelInfo
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// OverrideCatalog replaces the in-memory catalog entirely.
func OverrideCatalog(m map[string]ModelInfo) {
	if m == nil {
		return
	}
	models = m
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	if m == nil {
		return
	}
	for k, v := range m {
		models[k] = v
	}
}

// Catalog returns a shallow copy of the current model catalog.
func Catalog() map[string]ModelInfo {
	out := make(map[string]ModelInfo, len(models))
	for k, v := range models {
		out[k] = v
	}
	return out
}

// CatalogNames returns the sorted model names in the catalog.
func CatalogNames() []string {
	names := make([]string, 0, len(models))
	for k := range models {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
