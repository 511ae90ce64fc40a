// Package rag wires the embedder, the vector index, and the generator into
// the query pipeline: embed the question, retrieve the nearest chunks,
// assemble the prompt, and generate a cited answer.
package rag

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geronlab/biorag/internal/config"
	"github.com/geronlab/biorag/internal/embedding"
	"github.com/geronlab/biorag/internal/errs"
	"github.com/geronlab/biorag/internal/generator"
	"github.com/geronlab/biorag/internal/models"
	"github.com/geronlab/biorag/internal/vector"
)

// noEvidenceAnswer is returned without calling the generator when retrieval
// finds nothing.
const noEvidenceAnswer = "No relevant information found."

// Pipeline is the query orchestrator. It is safe for concurrent use: the
// index handle serves immutable snapshots and the embedder and generator
// manage their own synchronization.
type Pipeline struct {
	cfg       *config.Config
	embedder  embedding.Embedder
	index     *vector.Handle
	generator generator.Generator
	logger    *zap.Logger
}

func NewPipeline(cfg *config.Config, embedder embedding.Embedder, index *vector.Handle, gen generator.Generator, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		embedder:  embedder,
		index:     index,
		generator: gen,
		logger:    logger,
	}
}

// Query answers req end to end. Retrieval oversamples to the configured
// retrieval depth, the answer is generated from at most max_context_chunks
// chunks, and citations cover every retrieved chunk's PMID. An empty index
// or failed stage surfaces as a coded error; empty retrieval over a built
// index returns a no-evidence answer with confidence 0.
func (p *Pipeline) Query(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	start := time.Now()
	if err := req.Validate(p.cfg.Query.MaxQuestionChars); err != nil {
		return nil, err
	}
	question := strings.TrimSpace(req.Question)
	queryID := uuid.NewString()

	k := req.MaxResults
	if k == 0 {
		k = p.cfg.Query.DefaultK
	}
	searchK := k
	if p.cfg.Query.RetrievalK > searchK {
		searchK = p.cfg.Query.RetrievalK
	}

	embedStart := time.Now()
	vecs, err := p.embedder.Encode(ctx, []string{question})
	if err != nil {
		return nil, errs.Wrap(errs.CodeEmbedding, "rag.Pipeline.Query", err)
	}
	embedMillis := time.Since(embedStart).Milliseconds()

	ix, err := p.index.Current()
	if err != nil {
		return nil, err
	}
	searchStart := time.Now()
	results, err := ix.Search(vecs[0], searchK)
	if err != nil {
		return nil, err
	}
	searchMillis := time.Since(searchStart).Milliseconds()

	if len(results) > k {
		results = results[:k]
	}
	retrieved := make([]models.ChunkMeta, 0, len(results))
	for _, r := range results {
		if m, ok := ix.Meta(r.Row); ok {
			retrieved = append(retrieved, m)
		}
	}
	citations := dedupCitations(retrieved)
	confidence := meanScore(results)

	res := &models.QueryResult{
		Citations:   citations,
		Confidence:  confidence,
		PapersFound: len(citations),
		Diagnostics: models.Diagnostics{
			QueryID:         queryID,
			ChunksRetrieved: len(retrieved),
			EmbedMillis:     embedMillis,
			SearchMillis:    searchMillis,
		},
	}

	if len(retrieved) == 0 {
		res.Text = noEvidenceAnswer
		res.Citations = []string{}
		res.Diagnostics.TotalMillis = time.Since(start).Milliseconds()
		p.logQuery(queryID, res, 0)
		return res, nil
	}

	contextChunks := retrieved
	if max := p.cfg.Query.MaxContextChunks; max > 0 && len(contextChunks) > max {
		contextChunks = contextChunks[:max]
	}
	res.Diagnostics.ChunksUsed = len(contextChunks)

	prompt := buildPrompt(question, contextChunks, p.cfg.Generator.MaxPromptChars)
	genStart := time.Now()
	answer, err := p.generator.Generate(ctx, prompt, generator.Options{})
	if err != nil {
		return nil, err
	}
	res.Text = answer
	res.Diagnostics.GenerateMillis = time.Since(genStart).Milliseconds()
	res.Diagnostics.TotalMillis = time.Since(start).Milliseconds()
	p.logQuery(queryID, res, len(results))
	return res, nil
}

// meanScore is the arithmetic mean of the retrieved similarity scores,
// clamped to [0, 1]. No retrieval means no confidence.
func meanScore(results []vector.Result) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	mean := sum / float64(len(results))
	if mean < 0 {
		return 0
	}
	if mean > 1 {
		return 1
	}
	return mean
}

func (p *Pipeline) logQuery(queryID string, res *models.QueryResult, retrieved int) {
	p.logger.Info("query answered",
		zap.String("query_id", queryID),
		zap.Int("chunks_retrieved", retrieved),
		zap.Int("chunks_used", res.Diagnostics.ChunksUsed),
		zap.Int("papers_found", res.PapersFound),
		zap.Float64("confidence", res.Confidence),
		zap.Int64("embed_ms", res.Diagnostics.EmbedMillis),
		zap.Int64("search_ms", res.Diagnostics.SearchMillis),
		zap.Int64("generate_ms", res.Diagnostics.GenerateMillis),
		zap.Int64("total_ms", res.Diagnostics.TotalMillis))
}
