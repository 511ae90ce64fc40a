// Package ingest builds the vector index artifact from a corpus directory.
package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/geronlab/biorag/internal/config"
	"github.com/geronlab/biorag/internal/corpus"
	"github.com/geronlab/biorag/internal/embedding"
	"github.com/geronlab/biorag/internal/errs"
	"github.com/geronlab/biorag/internal/models"
	"github.com/geronlab/biorag/internal/storage"
	"github.com/geronlab/biorag/internal/vector"
)

// Stats summarizes one ingestion run.
type Stats struct {
	Documents  int           `json:"documents"`
	Chunks     int           `json:"chunks"`
	Dimensions int           `json:"dimensions"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Builder turns a corpus directory into a persisted index artifact and a
// populated document catalog.
type Builder struct {
	cfg      *config.Config
	embedder embedding.Embedder
	store    storage.Storage
	chunker  *Chunker
	logger   *zap.Logger
}

func NewBuilder(cfg *config.Config, embedder embedding.Embedder, store storage.Storage, logger *zap.Logger) *Builder {
	return &Builder{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		chunker:  NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		logger:   logger,
	}
}

// Run loads the corpus, upserts every document into the catalog, chunks and
// embeds the abstracts, builds the index, and atomically writes the artifact
// to cfg.Storage.IndexPath. The artifact only changes on full success.
func (b *Builder) Run(ctx context.Context) (Stats, error) {
	const op = "ingest.Builder.Run"
	start := time.Now()

	docs, err := corpus.LoadDir(b.cfg.Storage.CorpusDir, b.logger)
	if err != nil {
		return Stats{}, err
	}
	if len(docs) == 0 {
		return Stats{}, errs.New(errs.CodeIndexBuild, op, "corpus directory contains no usable documents")
	}

	var chunks []models.ChunkMeta
	for _, doc := range docs {
		if err := b.store.UpsertDocument(ctx, doc); err != nil {
			return Stats{}, errs.Wrap(errs.CodeIndexBuild, op, err)
		}
		chunks = append(chunks, b.chunker.Chunk(doc)...)
	}
	if len(chunks) == 0 {
		return Stats{}, errs.New(errs.CodeIndexBuild, op, "corpus produced no chunks")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.ChunkText
	}
	b.logger.Info("embedding corpus",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)))
	vectors, err := b.embedder.Encode(ctx, texts)
	if err != nil {
		return Stats{}, errs.Wrap(errs.CodeIndexBuild, op, err)
	}

	ix, err := vector.Build(vectors, chunks)
	if err != nil {
		return Stats{}, err
	}
	if err := ix.Save(b.cfg.Storage.IndexPath); err != nil {
		return Stats{}, errs.Wrap(errs.CodeIndexBuild, op, err)
	}

	stats := Stats{
		Documents:  len(docs),
		Chunks:     len(chunks),
		Dimensions: ix.Dimensions(),
		Elapsed:    time.Since(start),
	}
	b.logger.Info("index built",
		zap.String("path", b.cfg.Storage.IndexPath),
		zap.Int("documents", stats.Documents),
		zap.Int("chunks", stats.Chunks),
		zap.Int("dimensions", stats.Dimensions),
		zap.Duration("elapsed", stats.Elapsed))
	return stats, nil
}
