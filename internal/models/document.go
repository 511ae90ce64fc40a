// Package models defines core data structures for abstracts, chunks, and queries.
package models

import "time"

// Document is a stored biomedical abstract record.
type Document struct {
	ID        string    `json:"id" db:"id"` // PMID when known
	Title     string    `json:"title" db:"title"`
	Abstract  string    `json:"abstract" db:"abstract"`
	Source    string    `json:"source,omitempty" db:"source"` // file or feed the record came from
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ChunkMeta is the metadata entry stored alongside each index row.
// Row i of the vector matrix corresponds to entry i; entries are created
// during ingestion and are immutable afterwards.
type ChunkMeta struct {
	ID         string `json:"id"`   // unique chunk ID
	PMID       string `json:"pmid"` // citation key; may be empty for local files
	Title      string `json:"title"`
	ChunkText  string `json:"chunk_text"`
	Source     string `json:"source,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
}
