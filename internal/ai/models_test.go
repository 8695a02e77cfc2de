package ai

import "testing"

func TestRecommendModelDefaultsToGemini(t *testing.T) {
	name, ok := RecommendModel("", "balanced")
	if !ok || name != "gemini-1.5-flash" {
		t.Fatalf("unexpected recommendation: %q ok=%v", name, ok)
	}
	if _, ok := RecommendModel("unknown-provider", "balanced"); ok {
		t.Fatalf("expected no recommendation for unknown provider")
	}
}

func TestEstimateCostUSD(t *testing.T) {
	cost, ok := EstimateCostUSD("gemini-1.5-flash", 1000, 1000)
	if !ok {
		t.Fatalf("expected known model")
	}
	want := 0.0002 + 0.0008
	if diff := cost - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("cost = %v, want %v", cost, want)
	}
	if _, ok := EstimateCostUSD("no-such-model", 1000, 1000); ok {
		t.Fatalf("expected unknown model")
	}
}

func TestMergeCatalog(t *testing.T) {
	before := len(Catalog())
	MergeCatalog(map[string]ModelInfo{
		"test/custom-model": {Name: "test/custom-model", ContextTokens: 1234},
	})
	defer func() {
		m := Catalog()
		delete(m, "test/custom-model")
		OverrideCatalog(m)
	}()
	mi, ok := LookupModel("test/custom-model")
	if !ok || mi.ContextTokens != 1234 {
		t.Fatalf("merged model not found: %+v ok=%v", mi, ok)
	}
	if len(Catalog()) != before+1 {
		t.Fatalf("catalog size = %d, want %d", len(Catalog()), before+1)
	}
}
