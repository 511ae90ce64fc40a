// Package config provides configuration loading and structs for the biorag server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Generator GeneratorConfig `yaml:"generator"`
	Query     QueryConfig     `yaml:"query"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the document database, the index artifact,
// and the corpus directory consumed by ingestion.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	IndexPath    string `yaml:"index_path"`
	CorpusDir    string `yaml:"corpus_dir"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Mode       string `yaml:"mode"` // synthetic, model, or auto
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	BatchSize  int    `yaml:"batch_size"`
	Device     string `yaml:"device"` // auto, cpu, or cuda
	CacheSize  int    `yaml:"cache_size"`
}

// GeneratorConfig holds answer generation settings.
type GeneratorConfig struct {
	Provider       string   `yaml:"provider"` // synthetic or openai
	BaseURL        string   `yaml:"base_url"`
	APIKeyEnv      string   `yaml:"api_key_env"`
	Model          string   `yaml:"model"`
	Temperature    *float64 `yaml:"temperature"` // pointer so an explicit 0 survives defaulting
	MaxTokens      int      `yaml:"max_tokens"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	MaxPromptChars int      `yaml:"max_prompt_chars"`
}

// TemperatureOrDefault returns the configured temperature, or 0.7 when unset.
func (g *GeneratorConfig) TemperatureOrDefault() float64 {
	if g.Temperature != nil {
		return *g.Temperature
	}
	return 0.7
}

// QueryConfig holds retrieval and context assembly settings.
type QueryConfig struct {
	DefaultK         int `yaml:"default_k"`          // results returned when the caller does not ask for k
	RetrievalK       int `yaml:"retrieval_k"`        // oversampled search depth (headroom for reranking)
	MaxContextChunks int `yaml:"max_context_chunks"` // bound on chunks fed to the generator
	MaxQuestionChars int `yaml:"max_question_chars"`
}

// IngestConfig holds chunking settings for index construction.
type IngestConfig struct {
	ChunkSize    int `yaml:"chunk_size"`    // words per chunk
	ChunkOverlap int `yaml:"chunk_overlap"` // words shared between consecutive chunks
}

// Load reads and parses the config file at path, applies defaults, and
// expands relative paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.CorpusDir = expandPath(cfg.Storage.CorpusDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
