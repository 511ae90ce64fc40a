package models

import (
	"strings"

	"github.com/geronlab/biorag/internal/errs"
)

// QueryRequest is the wire-level query input.
type QueryRequest struct {
	Question   string `json:"question"`
	MaxResults int    `json:"max_results,omitempty"`
}

// Validate checks the request against the configured question length cap.
// Whitespace-only questions are rejected the same as empty ones.
func (q *QueryRequest) Validate(maxQuestionChars int) error {
	const op = "models.QueryRequest.Validate"
	if strings.TrimSpace(q.Question) == "" {
		return errs.New(errs.CodeValidation, op, "question must not be empty")
	}
	if maxQuestionChars > 0 && len(q.Question) > maxQuestionChars {
		return errs.Newf(errs.CodeValidation, op, "question exceeds %d characters", maxQuestionChars)
	}
	if q.MaxResults < 0 {
		return errs.New(errs.CodeInvalidParameter, op, "max_results must be positive")
	}
	return nil
}

// Diagnostics carries per-query retrieval and timing metadata.
type Diagnostics struct {
	QueryID         string `json:"query_id"`
	ChunksRetrieved int    `json:"chunks_retrieved"`
	ChunksUsed      int    `json:"chunks_used"`
	EmbedMillis     int64  `json:"embed_ms"`
	SearchMillis    int64  `json:"search_ms"`
	GenerateMillis  int64  `json:"generate_ms"`
	TotalMillis     int64  `json:"total_ms"`
}

// QueryResult is the synthesized answer with citations and confidence.
// Citations are unique PMIDs in first-occurrence order.
type QueryResult struct {
	Text        string      `json:"text"`
	Citations   []string    `json:"citations"`
	Confidence  float64     `json:"confidence"`
	PapersFound int         `json:"papers_found"`
	Diagnostics Diagnostics `json:"diagnostics"`
}
