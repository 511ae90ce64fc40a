package generator

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/geronlab/biorag/internal/config"
	"github.com/geronlab/biorag/internal/errs"
)

// Options tune a single generation call. Zero values fall back to the
// generator's configured defaults.
type Options struct {
	Temperature *float64
	MaxTokens   int
	Model       string
}

// Validate checks opts and the prompt before any backend is contacted.
func (o Options) Validate(prompt string) error {
	const op = "generator.Options.Validate"
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 1) {
		return errs.Newf(errs.CodeValidation, op, "temperature %v out of range [0, 1]", *o.Temperature)
	}
	if o.MaxTokens < 0 {
		return errs.Newf(errs.CodeValidation, op, "max_tokens must be positive, got %d", o.MaxTokens)
	}
	if strings.TrimSpace(prompt) == "" {
		return errs.New(errs.CodeValidation, op, "prompt must not be empty")
	}
	return nil
}

// Generator produces an answer from an assembled prompt.
type Generator interface {
	// Generate returns the model's completion for prompt. Implementations
	// honor ctx cancellation and return GENERATION_FAILED when the backend
	// cannot produce a completion.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)

	Close() error
}

// New builds the generator named by cfg.Provider.
func New(cfg config.GeneratorConfig, logger *zap.Logger) (Generator, error) {
	const op = "generator.New"
	switch cfg.Provider {
	case "synthetic", "":
		return NewSynthetic(), nil
	case "openai":
		apiKey := os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, errs.Newf(errs.CodeGeneration, op, "environment variable %s is not set", cfg.APIKeyEnv)
		}
		return NewRemote(cfg, apiKey, logger), nil
	default:
		return nil, errs.Newf(errs.CodeGeneration, op, "unknown generator provider %q", cfg.Provider)
	}
}
