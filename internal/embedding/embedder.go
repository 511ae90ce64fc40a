// Package embedding converts text into fixed-dimension unit vectors.
package embedding

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/geronlab/biorag/internal/config"
	"github.com/geronlab/biorag/internal/errs"
)

// Embedder produces vector embeddings for text. Every vector from a given
// instance has the same dimension and unit L2 norm.
type Embedder interface {
	// Encode returns one vector per input text, in order.
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the fixed embedding dimension.
	Dimensions() int
	Close() error
}

// Modes for embedder construction. The mode is fixed for the instance's
// lifetime; it never switches per call.
const (
	ModeSynthetic = "synthetic"
	ModeModel     = "model"
	ModeAuto      = "auto"
)

// New selects and constructs an embedder once, per the configured mode.
// In auto mode the model-backed embedder is used when its runtime and model
// file are available; otherwise the synthetic embedder is used with a logged
// warning. A hard model failure in explicit model mode is an error; callers
// may fall back to synthetic themselves.
func New(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	const op = "embedding.New"
	if cfg.BatchSize <= 0 {
		return nil, errs.Newf(errs.CodeEmbedding, op, "batch_size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.Dimensions <= 0 {
		return nil, errs.Newf(errs.CodeEmbedding, op, "dimensions must be positive, got %d", cfg.Dimensions)
	}

	switch cfg.Mode {
	case ModeSynthetic:
		return NewSynthetic(cfg.Dimensions), nil
	case ModeModel:
		emb, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.BatchSize, cfg.CacheSize, cfg.Device, logger)
		if err != nil {
			return nil, errs.Wrap(errs.CodeEmbedding, op, err)
		}
		return emb, nil
	case ModeAuto, "":
		if _, err := os.Stat(cfg.ModelPath); err == nil {
			emb, onnxErr := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.BatchSize, cfg.CacheSize, cfg.Device, logger)
			if onnxErr == nil {
				logger.Info("model-backed embedder selected",
					zap.String("model_path", cfg.ModelPath),
					zap.Int("dimensions", cfg.Dimensions))
				return emb, nil
			}
			logger.Warn("model-backed embedder unavailable, using synthetic embeddings", zap.Error(onnxErr))
		} else {
			logger.Warn("embedding model not found, using synthetic embeddings",
				zap.String("model_path", cfg.ModelPath))
		}
		return NewSynthetic(cfg.Dimensions), nil
	default:
		return nil, errs.Newf(errs.CodeEmbedding, op, "unknown embedding mode %q (supported: synthetic, model, auto)", cfg.Mode)
	}
}
