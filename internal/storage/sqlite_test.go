package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/geronlab/biorag/internal/models"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "biorag.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_UpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := models.Document{
		ID:       "33495399",
		Title:    "Rapamycin",
		Abstract: "rapamycin extends lifespan in mice",
		Source:   "abstracts.jsonl",
	}
	if err := s.UpsertDocument(ctx, doc); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}

	got, ok, err := s.GetDocument(ctx, "33495399")
	if err != nil || !ok {
		t.Fatalf("GetDocument: ok=%v err=%v", ok, err)
	}
	if got.Title != doc.Title || got.Abstract != doc.Abstract {
		t.Errorf("got %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not populated")
	}

	// Upsert with the same PMID replaces content.
	doc.Abstract = "revised abstract"
	if err := s.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	got, _, err = s.GetDocument(ctx, "33495399")
	if err != nil {
		t.Fatal(err)
	}
	if got.Abstract != "revised abstract" {
		t.Errorf("abstract not replaced: %q", got.Abstract)
	}

	n, err := s.CountDocuments(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountDocuments = %d, %v", n, err)
	}
}

func TestSQLite_GetMissing(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.GetDocument(context.Background(), "0")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("missing document reported as found")
	}
}

func TestSQLite_ListPagination(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, pmid := range []string{"100", "200", "300"} {
		if err := s.UpsertDocument(ctx, models.Document{ID: pmid, Title: pmid, Abstract: "a", Source: "t"}); err != nil {
			t.Fatal(err)
		}
	}

	page, err := s.ListDocuments(ctx, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ID != "100" || page[1].ID != "200" {
		t.Fatalf("first page: %+v", page)
	}
	page, err = s.ListDocuments(ctx, page[1].ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != "300" {
		t.Fatalf("second page: %+v", page)
	}
}
