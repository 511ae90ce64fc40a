// Package corpus loads abstract records from a directory of corpus files.
// Supported formats: .jsonl (one record per line), .json (a single record or
// an array of records), and .txt (first line is the title, the rest is the
// abstract, the file stem is the PMID).
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geronlab/biorag/internal/errs"
	"github.com/geronlab/biorag/internal/models"
)

// record is the on-disk JSON shape of one abstract.
type record struct {
	PMID     string `json:"pmid"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

// LoadDir reads every supported file under dir (non-recursive) and returns
// the documents in deterministic order: files sorted by name, records in file
// order. Records without an abstract are skipped with a warning; records
// without a PMID get a deterministic content-derived placeholder ID;
// duplicate PMIDs keep the first occurrence.
func LoadDir(dir string, logger *zap.Logger) ([]models.Document, error) {
	const op = "corpus.LoadDir"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(errs.CodeValidation, op, fmt.Errorf("read corpus dir: %w", err))
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".jsonl", ".json", ".txt":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	seen := make(map[string]bool)
	var docs []models.Document
	for _, name := range names {
		path := filepath.Join(dir, name)
		loaded, err := loadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.CodeValidation, op, fmt.Errorf("load %s: %w", name, err))
		}
		for _, doc := range loaded {
			if strings.TrimSpace(doc.Abstract) == "" {
				logger.Warn("skipping corpus record without abstract",
					zap.String("file", name), zap.String("pmid", doc.ID))
				continue
			}
			if doc.ID == "" {
				doc.ID = placeholderID(doc.Title, doc.Abstract)
				logger.Warn("corpus record has no PMID, using placeholder",
					zap.String("file", name), zap.String("id", doc.ID))
			}
			if seen[doc.ID] {
				logger.Warn("skipping duplicate PMID",
					zap.String("file", name), zap.String("pmid", doc.ID))
				continue
			}
			seen[doc.ID] = true
			docs = append(docs, doc)
		}
	}
	logger.Info("corpus loaded", zap.String("dir", dir), zap.Int("documents", len(docs)))
	return docs, nil
}

// placeholderID derives a stable ID from the record content so re-ingesting
// the same corpus maps un-PMIDed records to the same document.
func placeholderID(title, abstract string) string {
	h := fnv.New64a()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(abstract))
	return fmt.Sprintf("local-%016x", h.Sum64())
}

func loadFile(path string) ([]models.Document, error) {
	switch filepath.Ext(path) {
	case ".jsonl":
		return loadJSONL(path)
	case ".json":
		return loadJSON(path)
	case ".txt":
		return loadText(path)
	}
	return nil, fmt.Errorf("unsupported corpus file %s", path)
}

func loadJSONL(path string) ([]models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	now := time.Now().UTC()
	var docs []models.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, toDocument(rec, filepath.Base(path), now))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func loadJSON(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		// Not an array; try a single record.
		var rec record
		if err2 := json.Unmarshal(data, &rec); err2 != nil {
			return nil, err
		}
		recs = []record{rec}
	}
	docs := make([]models.Document, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, toDocument(rec, filepath.Base(path), now))
	}
	return docs, nil
}

func loadText(path string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(data))
	title, abstract := text, ""
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		title = strings.TrimSpace(text[:i])
		abstract = strings.TrimSpace(text[i+1:])
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	now := time.Now().UTC()
	return []models.Document{{
		ID:        stem,
		Title:     title,
		Abstract:  abstract,
		Source:    base,
		CreatedAt: now,
		UpdatedAt: now,
	}}, nil
}

func toDocument(rec record, source string, now time.Time) models.Document {
	return models.Document{
		ID:        strings.TrimSpace(rec.PMID),
		Title:     strings.TrimSpace(rec.Title),
		Abstract:  strings.TrimSpace(rec.Abstract),
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
