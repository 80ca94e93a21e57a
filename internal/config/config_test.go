package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RetrievalStrategy != "vector" {
		t.Fatalf("default strategy must be vector, got %q", cfg.RetrievalStrategy)
	}
	if cfg.RetrievalTopK != 4 {
		t.Fatalf("default top_k must be 4, got %d", cfg.RetrievalTopK)
	}
	if cfg.FusionAlpha != 0.6 {
		t.Fatalf("default fusion alpha must be 0.6, got %v", cfg.FusionAlpha)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 100 {
		t.Fatalf("unexpected chunking defaults: %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.RerankModel != "" {
		t.Fatalf("rerank must be off by default, got %q", cfg.RerankModel)
	}
	if len(cfg.RouterRules) != 2 {
		t.Fatalf("expected built-in router rules, got %d", len(cfg.RouterRules))
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
retrieval_strategy: hybrid
retrieval_top_k: 8
rerank_model: rerank-v3.5
router_rules:
  - name: legal
    keywords: [contract, clause]
    strategy: keyword
    chain: compression
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RetrievalStrategy != "hybrid" || cfg.RetrievalTopK != 8 {
		t.Fatalf("file values not applied: %q/%d", cfg.RetrievalStrategy, cfg.RetrievalTopK)
	}
	if cfg.RerankModel != "rerank-v3.5" {
		t.Fatalf("rerank model not applied: %q", cfg.RerankModel)
	}
	if len(cfg.RouterRules) != 1 || cfg.RouterRules[0].Name != "legal" {
		t.Fatalf("file router rules must replace the defaults: %+v", cfg.RouterRules)
	}
	// Untouched fields keep their defaults.
	if cfg.FusionAlpha != 0.6 {
		t.Fatalf("unset fields must keep defaults, got alpha %v", cfg.FusionAlpha)
	}
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("retrieval_top_k: 8\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RETRIEVAL_TOP_K", "6")
	t.Setenv("FUSION_ALPHA", "0.8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RetrievalTopK != 6 {
		t.Fatalf("env must win over file, got %d", cfg.RetrievalTopK)
	}
	if cfg.FusionAlpha != 0.8 {
		t.Fatalf("env float not applied, got %v", cfg.FusionAlpha)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("retrieval_top_k: [broken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected read error for a missing file")
	}
}
