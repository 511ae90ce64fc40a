//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/geronlab/biorag/internal/errs"
	"github.com/geronlab/biorag/pkg/utils"
)

// ONNXEmbedder runs a BERT-style encoder through ONNX Runtime. It requires
// CGO and the onnxruntime shared library. Inputs are processed in batches of
// batchSize to bound memory; each text is truncated to maxTokens from the
// right and represented by the model's pooled first-position output,
// normalized to unit length.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	batchSize  int
	cache      *Cache
	tokenizer  Tokenizer
	logger     *zap.Logger
	// Pre-allocated tensors for Run(); input data is rewritten per text.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder creates a model-backed embedder. The compute device is
// chosen from the device preference: "cuda" requires the accelerator,
// "auto" tries it and falls back to CPU, "cpu" skips detection.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens, batchSize, cacheSize int, device string, logger *zap.Logger) (*ONNXEmbedder, error) {
	if batchSize <= 0 {
		return nil, errs.Newf(errs.CodeEmbedding, "embedding.NewONNXEmbedder", "batch size must be positive, got %d", batchSize)
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	sessionOpts, err := sessionOptionsForDevice(device, logger)
	if err != nil {
		return nil, err
	}
	if sessionOpts != nil {
		defer sessionOpts.Destroy()
	}

	tokenizer := &WordTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", maxTokens)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), tokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outputData := make([]float32, dimensions)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), outputData)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	inputs := []ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor}
	outputs := []ort.ArbitraryTensor{outputTensor}
	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		inputs,
		outputs,
		sessionOpts,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXEmbedder{
		session:             session,
		dimensions:          dimensions,
		maxTokens:           maxTokens,
		batchSize:           batchSize,
		cache:               NewCache(cacheSize),
		tokenizer:           tokenizer,
		logger:              logger,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

// sessionOptionsForDevice builds session options for the requested compute
// device. "cpu" (or empty) returns nil options. "auto" probes for CUDA and
// falls back to CPU when unavailable; "cuda" fails hard instead.
func sessionOptionsForDevice(device string, logger *zap.Logger) (*ort.SessionOptions, error) {
	switch device {
	case "", "cpu":
		return nil, nil
	case "auto", "cuda":
	default:
		return nil, errs.Newf(errs.CodeEmbedding, "embedding.sessionOptionsForDevice", "unknown device %q (supported: auto, cpu, cuda)", device)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	cudaOpts, cudaErr := ort.NewCUDAProviderOptions()
	if cudaErr == nil {
		if cudaErr = opts.AppendExecutionProviderCUDA(cudaOpts); cudaErr == nil {
			logger.Info("embedding on CUDA")
			return opts, nil
		}
		_ = cudaOpts.Destroy()
	}
	if device == "cuda" {
		_ = opts.Destroy()
		return nil, errs.Wrap(errs.CodeEmbedding, "embedding.sessionOptionsForDevice", fmt.Errorf("cuda requested but unavailable: %w", cudaErr))
	}
	logger.Warn("CUDA unavailable, embedding on CPU")
	_ = opts.Destroy()
	return nil, nil
}

// Encode returns one embedding per text, processing inputs in batches.
func (e *ONNXEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		for _, text := range texts[start:end] {
			vec, err := e.embedOne(text)
			if err != nil {
				return nil, errs.Wrap(errs.CodeEmbedding, "embedding.Encode", err)
			}
			vectors = append(vectors, vec)
		}
	}
	return vectors, nil
}

func (e *ONNXEmbedder) embedOne(text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := e.outputTensor.GetData()
	embedding := make([]float32, e.dimensions)
	copy(embedding, outputData[:e.dimensions])
	utils.NormalizeL2(embedding)

	e.cache.Set(text, embedding)
	return embedding, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
		e.tokenTypeIDsTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
