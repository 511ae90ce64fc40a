package ingest

import (
	"fmt"
	"strings"

	"github.com/geronlab/biorag/internal/models"
)

// Chunker splits abstracts into overlapping word windows sized for the
// embedder's token budget.
type Chunker struct {
	chunkSize    int // words per chunk
	chunkOverlap int // words shared between consecutive chunks
}

// NewChunker validates and returns a chunker. A non-positive size falls back
// to 256 words; overlap is clamped below the size so every window advances.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 256
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits doc's abstract into windows and returns one ChunkMeta per
// window. Chunk IDs are "<pmid>_<index>" so rows map back to their document
// and position. An abstract shorter than one window yields a single chunk.
func (c *Chunker) Chunk(doc models.Document) []models.ChunkMeta {
	words := strings.Fields(doc.Abstract)
	if len(words) == 0 {
		return nil
	}

	step := c.chunkSize - c.chunkOverlap
	var chunks []models.ChunkMeta
	for start, idx := 0, 0; start < len(words); start, idx = start+step, idx+1 {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, models.ChunkMeta{
			ID:         fmt.Sprintf("%s_%d", doc.ID, idx),
			PMID:       doc.ID,
			Title:      doc.Title,
			ChunkText:  strings.Join(words[start:end], " "),
			Source:     doc.Source,
			ChunkIndex: idx,
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}
