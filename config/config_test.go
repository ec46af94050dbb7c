package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", cfg.Provider)
	}
	if cfg.EmbeddingModel != "text-embedding-004" {
		t.Errorf("EmbeddingModel = %q", cfg.EmbeddingModel)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KNOWBOT_ADDR", ":9999")
	t.Setenv("KNOWBOT_PROVIDER", "anthropic")
	t.Setenv("KNOWBOT_REVISION_LIMIT", "3")
	t.Setenv("KNOWBOT_DEBUG", "true")

	cfg := Load()

	if cfg.Addr != ":9999" || cfg.Provider != "anthropic" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.RevisionLimit != 3 {
		t.Errorf("RevisionLimit = %d, want 3", cfg.RevisionLimit)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("KNOWBOT_REVISION_LIMIT", "lots")

	if cfg := Load(); cfg.RevisionLimit != 0 {
		t.Errorf("RevisionLimit = %d, want fallback 0", cfg.RevisionLimit)
	}
}
