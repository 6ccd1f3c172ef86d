package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()

	if got := len(r.ListCapabilities()); got != 6 {
		t.Errorf("expected 6 capabilities, got %d", got)
	}

	for _, c := range r.ListCapabilities() {
		for _, name := range r.GetFallbackChain(c) {
			if r.GetEndpoint(name) == nil {
				t.Errorf("capability %s references missing endpoint %q", c, name)
			}
		}
	}
}

func TestRegistryResolve(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		capability Capability
		expected   string
	}{
		{CapabilityExtraction, "gemini-flash"},
		{CapabilityGeneration, "gemini-flash"},
		{CapabilityReview, "gemini-flash"},
		{Capability("unknown"), "gemini-flash"},
	}

	for _, tt := range tests {
		t.Run(string(tt.capability), func(t *testing.T) {
			if got := r.Resolve(tt.capability); got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.capability, got, tt.expected)
			}
		})
	}
}

func TestRegistryGetFallbackChain(t *testing.T) {
	r := NewDefaultRegistry()

	chain := r.GetFallbackChain(CapabilityGeneration)
	want := []string{"gemini-flash", "claude-sonnet", "qwen"}
	if strings.Join(chain, ",") != strings.Join(want, ",") {
		t.Errorf("chain = %v, want %v", chain, want)
	}

	if chain := r.GetFallbackChain(Capability("custom")); len(chain) != 1 || chain[0] != "gemini-flash" {
		t.Errorf("unknown capability should fall back to default, got %v", chain)
	}
}

func TestCapabilityForIntent(t *testing.T) {
	tests := map[string]Capability{
		"extract-requirements": CapabilityExtraction,
		"generate-test-cases":  CapabilityGeneration,
		"heal-test-case":       CapabilityReview,
		"detect-duplicates":    CapabilityAnalysis,
		"automate-test-case":   CapabilityAutomation,
		"something-else":       CapabilityGeneration,
	}
	for intent, want := range tests {
		if got := CapabilityForIntent(intent); got != want {
			t.Errorf("CapabilityForIntent(%q) = %q, want %q", intent, got, want)
		}
	}
}

func TestParseCapability(t *testing.T) {
	if got := ParseCapability("analysis"); got != CapabilityAnalysis {
		t.Errorf("expected analysis, got %q", got)
	}
	if got := ParseCapability("planning"); got != "" {
		t.Errorf("expected empty for unknown capability, got %q", got)
	}
}

func TestLoadFromJSON(t *testing.T) {
	t.Run("nested under model_registry", func(t *testing.T) {
		data := []byte(`{
			"model_registry": {
				"capabilities": {
					"generation": {"preferred": ["model-a"], "fallback": ["model-b"]}
				},
				"endpoints": {
					"model-a": {"provider": "gemini", "model": "gemini-2.5-pro"},
					"model-b": {"provider": "ollama", "model": "llama3.2"}
				},
				"defaults": {"model": "model-a"}
			}
		}`)

		r, err := LoadFromJSON(data)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got := r.Resolve(CapabilityGeneration); got != "model-a" {
			t.Errorf("expected model-a, got %q", got)
		}
		if got := r.Resolve(CapabilityAnalysis); got != "model-a" {
			t.Errorf("expected default model-a, got %q", got)
		}
	})

	t.Run("bare registry", func(t *testing.T) {
		data := []byte(`{
			"capabilities": {"review": {"preferred": ["local"]}},
			"endpoints": {"local": {"provider": "ollama", "model": "qwen2.5"}}
		}`)

		r, err := LoadFromJSON(data)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if ep := r.GetEndpoint(r.Resolve(CapabilityReview)); ep == nil || ep.Model != "qwen2.5" {
			t.Errorf("unexpected endpoint %+v", ep)
		}
	})

	t.Run("dangling endpoint reference", func(t *testing.T) {
		data := []byte(`{"capabilities": {"review": {"preferred": ["missing"]}}, "endpoints": {}}`)
		if _, err := LoadFromJSON(data); err == nil {
			t.Error("expected error for unknown endpoint")
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := LoadFromJSON([]byte(`not json`)); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.json")
	data, err := json.Marshal(NewDefaultRegistry())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := len(r.ListEndpoints()); got != 4 {
		t.Errorf("expected 4 endpoints after round trip, got %d", got)
	}

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCircuitBreaker(t *testing.T) {
	r := NewDefaultRegistry()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.health.now = func() time.Time { return now }
	r.SetHealthConfig(HealthConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	if r.GetEndpointHealth("qwen") != nil {
		t.Fatal("expected no health info before any requests")
	}

	r.MarkEndpointFailure("qwen")
	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected qwen available after one failure")
	}

	r.MarkEndpointFailure("qwen")
	if r.IsEndpointAvailable("qwen") {
		t.Error("expected circuit open after two failures")
	}

	chain := r.GetAvailableFallbackChain(CapabilityGeneration)
	for _, name := range chain {
		if name == "qwen" {
			t.Errorf("open endpoint should be filtered from %v", chain)
		}
	}

	now = now.Add(2 * time.Minute)
	if !r.IsEndpointAvailable("qwen") {
		t.Error("expected half-open after recovery timeout")
	}

	r.MarkEndpointSuccess("qwen")
	h := r.GetEndpointHealth("qwen")
	if h == nil || h.CircuitOpen || h.FailureCount != 0 {
		t.Errorf("expected closed circuit after success, got %+v", h)
	}

	r.ResetEndpointHealth("qwen")
	if r.GetEndpointHealth("qwen") != nil {
		t.Error("expected health cleared")
	}
}

func TestGetAvailableFallbackChain_AllOpen(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	full := r.GetFallbackChain(CapabilityFast)
	for _, name := range full {
		r.MarkEndpointFailure(name)
	}

	if got := r.GetAvailableFallbackChain(CapabilityFast); len(got) != len(full) {
		t.Errorf("expected full chain when all open, got %v", got)
	}
}
