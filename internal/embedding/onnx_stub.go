//go:build !cgo
// +build !cgo

package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/geronlab/biorag/internal/errs"
)

// ONNXEmbedder stub when built without CGO (see onnx.go for the real one).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO; auto mode falls
// back to the synthetic embedder in that case.
func NewONNXEmbedder(_ string, _, _, _, _ int, _ string, _ *zap.Logger) (*ONNXEmbedder, error) {
	return nil, errs.New(errs.CodeEmbedding, "embedding.NewONNXEmbedder",
		"model-backed embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

func (e *ONNXEmbedder) Encode(context.Context, []string) ([][]float32, error) {
	return nil, errs.New(errs.CodeEmbedding, "embedding.Encode", "model-backed embedder not available")
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }

func (e *ONNXEmbedder) Close() error { return nil }
