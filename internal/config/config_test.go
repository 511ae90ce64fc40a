package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults: got %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Embedding.Mode != "auto" {
		t.Errorf("embedding mode default: got %q", cfg.Embedding.Mode)
	}
	if cfg.Embedding.Dimensions != 768 {
		t.Errorf("dimensions default: got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.MaxTokens != 512 {
		t.Errorf("max_tokens default: got %d", cfg.Embedding.MaxTokens)
	}
	if cfg.Embedding.BatchSize != 32 {
		t.Errorf("batch_size default: got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Generator.Provider != "synthetic" {
		t.Errorf("generator provider default: got %q", cfg.Generator.Provider)
	}
	if got := cfg.Generator.TemperatureOrDefault(); got != 0.7 {
		t.Errorf("temperature default: got %f", got)
	}
	if cfg.Query.DefaultK != 10 || cfg.Query.RetrievalK != 20 || cfg.Query.MaxContextChunks != 10 {
		t.Errorf("query defaults: got %+v", cfg.Query)
	}
	if cfg.Query.MaxQuestionChars != 10000 {
		t.Errorf("max_question_chars default: got %d", cfg.Query.MaxQuestionChars)
	}
}

func TestTemperatureExplicitZero(t *testing.T) {
	zero := 0.0
	cfg := &Config{Generator: GeneratorConfig{Temperature: &zero}}
	ApplyDefaults(cfg)
	if got := cfg.Generator.TemperatureOrDefault(); got != 0.0 {
		t.Errorf("explicit zero temperature overwritten: got %f", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 9090
storage:
  index_path: ./data/abstracts.idx
embedding:
  mode: synthetic
  dimensions: 64
generator:
  provider: synthetic
  temperature: 0.2
query:
  default_k: 5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug not parsed")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if cfg.Embedding.Mode != "synthetic" || cfg.Embedding.Dimensions != 64 {
		t.Errorf("embedding: got %+v", cfg.Embedding)
	}
	if got := cfg.Generator.TemperatureOrDefault(); got != 0.2 {
		t.Errorf("temperature: got %f", got)
	}
	if cfg.Query.DefaultK != 5 {
		t.Errorf("default_k: got %d", cfg.Query.DefaultK)
	}
	// "./" paths expand relative to the config dir.
	want := filepath.Join(dir, "data/abstracts.idx")
	if cfg.Storage.IndexPath != want {
		t.Errorf("index_path: got %q, want %q", cfg.Storage.IndexPath, want)
	}
	// Unset values still get defaults.
	if cfg.Query.RetrievalK != 20 {
		t.Errorf("retrieval_k default: got %d", cfg.Query.RetrievalK)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
