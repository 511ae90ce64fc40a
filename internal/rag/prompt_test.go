package rag

import (
	"strings"
	"testing"

	"github.com/geronlab/biorag/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	chunks := []models.ChunkMeta{
		{PMID: "1", ChunkText: "alpha"},
		{PMID: "2", ChunkText: "beta"},
	}
	prompt := buildPrompt("why?", chunks, 0)
	if !strings.HasPrefix(prompt, "Question: why?\n\nContext:\n") {
		t.Errorf("prompt header: %q", prompt)
	}
	if !strings.Contains(prompt, "PMID:1 alpha\n") || !strings.Contains(prompt, "PMID:2 beta\n") {
		t.Errorf("prompt chunks: %q", prompt)
	}
}

func TestBuildPrompt_CharBudget(t *testing.T) {
	chunks := []models.ChunkMeta{
		{PMID: "1", ChunkText: strings.Repeat("a", 50)},
		{PMID: "2", ChunkText: strings.Repeat("b", 50)},
	}
	prompt := buildPrompt("q", chunks, 90)
	if len(prompt) > 90 {
		t.Errorf("prompt exceeds budget: %d chars", len(prompt))
	}
	if !strings.Contains(prompt, "PMID:1") {
		t.Error("first chunk should fit")
	}
	if strings.Contains(prompt, "PMID:2") {
		t.Error("second chunk should be cut at the boundary")
	}
}

func TestDedupCitations(t *testing.T) {
	chunks := []models.ChunkMeta{
		{PMID: "2"}, {PMID: "1"}, {PMID: "2"}, {PMID: ""}, {PMID: "3"},
	}
	got := dedupCitations(chunks)
	want := []string{"2", "1", "3"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
}
