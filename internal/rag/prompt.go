package rag

import (
	"strings"

	"github.com/geronlab/biorag/internal/models"
)

// buildPrompt renders the question and the retrieved chunks into the
// generation prompt. Each chunk line starts with its "PMID:<id>" marker so
// generators can cite sources. When maxChars is positive the context section
// is cut at a chunk boundary to stay under it; the question is never cut.
func buildPrompt(question string, chunks []models.ChunkMeta, maxChars int) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nContext:\n")
	for _, c := range chunks {
		line := "PMID:" + c.PMID + " " + c.ChunkText + "\n"
		if maxChars > 0 && b.Len()+len(line) > maxChars {
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

// dedupCitations returns the distinct non-empty PMIDs of chunks in first
// occurrence order.
func dedupCitations(chunks []models.ChunkMeta) []string {
	seen := make(map[string]bool, len(chunks))
	var pmids []string
	for _, c := range chunks {
		if c.PMID == "" || seen[c.PMID] {
			continue
		}
		seen[c.PMID] = true
		pmids = append(pmids, c.PMID)
	}
	return pmids
}
