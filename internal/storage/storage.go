// Package storage persists the document catalog behind the query service.
// The vector index holds chunk embeddings; this store holds the full
// documents so the API can serve them by PMID and report corpus counts.
package storage

import (
	"context"
	"os"

	"github.com/geronlab/biorag/internal/models"
)

// Storage is the document catalog.
type Storage interface {
	// UpsertDocument inserts doc or, when the PMID already exists, replaces
	// its content and bumps UpdatedAt.
	UpsertDocument(ctx context.Context, doc models.Document) error

	// GetDocument returns the document with the given PMID; ok is false when
	// it does not exist.
	GetDocument(ctx context.Context, pmid string) (models.Document, bool, error)

	// ListDocuments returns up to limit documents ordered by PMID, starting
	// after the given PMID (empty string starts from the beginning).
	ListDocuments(ctx context.Context, afterPMID string, limit int) ([]models.Document, error)

	// CountDocuments returns the catalog size.
	CountDocuments(ctx context.Context) (int, error)

	Close() error
}

// DiskUsageBytes sums the sizes of the given files. Missing paths count as
// zero so it can be called before the first ingestion.
func DiskUsageBytes(paths ...string) int64 {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			total += info.Size()
		}
	}
	return total
}
