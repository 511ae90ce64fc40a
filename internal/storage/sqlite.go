package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/geronlab/biorag/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	pmid       TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	abstract   TEXT NOT NULL,
	source     TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// SQLite is the Storage implementation backed by a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and ensures the
// schema exists. WAL mode keeps reads from blocking during ingestion writes.
func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) UpsertDocument(ctx context.Context, doc models.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (pmid, title, abstract, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pmid) DO UPDATE SET
			title = excluded.title,
			abstract = excluded.abstract,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Title, doc.Abstract, doc.Source, doc.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *SQLite) GetDocument(ctx context.Context, pmid string) (models.Document, bool, error) {
	var doc models.Document
	err := s.db.QueryRowContext(ctx, `
		SELECT pmid, title, abstract, source, created_at, updated_at
		FROM documents WHERE pmid = ?`, pmid).
		Scan(&doc.ID, &doc.Title, &doc.Abstract, &doc.Source, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Document{}, false, nil
	}
	if err != nil {
		return models.Document{}, false, fmt.Errorf("get document %s: %w", pmid, err)
	}
	return doc, true, nil
}

func (s *SQLite) ListDocuments(ctx context.Context, afterPMID string, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT pmid, title, abstract, source, created_at, updated_at
		FROM documents WHERE pmid > ? ORDER BY pmid LIMIT ?`, afterPMID, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Abstract, &doc.Source, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLite) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
