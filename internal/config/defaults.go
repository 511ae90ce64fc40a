package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/biorag/data/db/documents.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "/usr/local/var/biorag/data/indices/abstracts.idx"
	}
	if cfg.Storage.CorpusDir == "" {
		cfg.Storage.CorpusDir = "/usr/local/var/biorag/data/corpus"
	}
	if cfg.Embedding.Mode == "" {
		cfg.Embedding.Mode = "auto"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/biorag/data/models/pubmedbert.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 512
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.Device == "" {
		cfg.Embedding.Device = "auto"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Generator.Provider == "" {
		cfg.Generator.Provider = "synthetic"
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4"
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 512
	}
	if cfg.Generator.TimeoutSeconds == 0 {
		cfg.Generator.TimeoutSeconds = 30
	}
	if cfg.Generator.MaxPromptChars == 0 {
		cfg.Generator.MaxPromptChars = 32000
	}
	if cfg.Query.DefaultK == 0 {
		cfg.Query.DefaultK = 10
	}
	if cfg.Query.RetrievalK == 0 {
		cfg.Query.RetrievalK = 20
	}
	if cfg.Query.MaxContextChunks == 0 {
		cfg.Query.MaxContextChunks = 10
	}
	if cfg.Query.MaxQuestionChars == 0 {
		cfg.Query.MaxQuestionChars = 10000
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 256
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 32
	}
}
