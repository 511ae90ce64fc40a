package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "abstracts.jsonl",
		`{"pmid":"33495399","title":"Rapamycin","abstract":"rapamycin extends lifespan in mice"}
{"pmid":"29989283","title":"Metformin","abstract":"metformin modulates aging pathways"}
`)
	writeFile(t, dir, "extra.json",
		`[{"pmid":"31002797","title":"Caloric restriction","abstract":"caloric restriction and longevity"}]`)
	writeFile(t, dir, "35000001.txt", "NAD+ precursors\nNAD+ boosters in aged tissue")
	writeFile(t, dir, "notes.md", "ignored")

	docs, err := LoadDir(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 4 {
		t.Fatalf("got %d documents, want 4", len(docs))
	}

	byID := make(map[string]int)
	for i, d := range docs {
		byID[d.ID] = i
	}
	for _, pmid := range []string{"33495399", "29989283", "31002797", "35000001"} {
		if _, ok := byID[pmid]; !ok {
			t.Errorf("missing PMID %s", pmid)
		}
	}
	txt := docs[byID["35000001"]]
	if txt.Title != "NAD+ precursors" || txt.Abstract != "NAD+ boosters in aged tissue" {
		t.Errorf("text record parsed wrong: %+v", txt)
	}
}

func TestLoadDir_SkipsAndPlaceholders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jsonl",
		`{"pmid":"1","title":"first","abstract":"kept"}
{"pmid":"","title":"no pmid","abstract":"gets a placeholder"}
{"pmid":"2","title":"no abstract","abstract":"  "}
{"pmid":"1","title":"dup","abstract":"skipped"}
`)
	docs, err := LoadDir(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %+v", docs)
	}
	if docs[0].ID != "1" || docs[0].Title != "first" {
		t.Errorf("first doc: %+v", docs[0])
	}
	if !strings.HasPrefix(docs[1].ID, "local-") {
		t.Errorf("placeholder ID: %q", docs[1].ID)
	}

	// Placeholders are content-derived: a second load yields the same ID.
	again, err := LoadDir(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if again[1].ID != docs[1].ID {
		t.Errorf("placeholder not stable: %q vs %q", again[1].ID, docs[1].ID)
	}
}

func TestLoadDir_MalformedJSONL(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.jsonl", "{not json}\n")
	if _, err := LoadDir(dir, zap.NewNop()); err == nil {
		t.Error("expected error for malformed jsonl")
	}
}

func TestLoadDir_SingleJSONObject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.json", `{"pmid":"7","title":"t","abstract":"a"}`)
	docs, err := LoadDir(dir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "7" {
		t.Errorf("got %+v", docs)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope"), zap.NewNop()); err == nil {
		t.Error("expected error for missing dir")
	}
}
