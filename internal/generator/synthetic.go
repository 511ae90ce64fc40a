package generator

import (
	"context"
	"fmt"
	"strings"
)

// Synthetic produces deterministic template answers without any model
// backend. It is the default provider for development and tests: answers
// echo the question and cite the PMIDs visible in the prompt, so pipeline
// behavior stays assertable.
type Synthetic struct{}

// NewSynthetic returns a template-based generator.
func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

// Generate builds a canned answer from the prompt. PMIDs are recognized by
// the "PMID:<id>" markers the prompt assembler writes in front of each
// context chunk.
func (s *Synthetic) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := opts.Validate(prompt); err != nil {
		return "", err
	}

	question := extractQuestion(prompt)
	pmids := extractPMIDs(prompt)

	var b strings.Builder
	if question != "" {
		fmt.Fprintf(&b, "Based on the retrieved literature, regarding %q: ", question)
	} else {
		b.WriteString("Based on the retrieved literature: ")
	}
	if len(pmids) == 0 {
		b.WriteString("no supporting abstracts were found in the corpus.")
		return b.String(), nil
	}
	b.WriteString("the evidence from ")
	if len(pmids) == 1 {
		b.WriteString("1 abstract")
	} else {
		fmt.Fprintf(&b, "%d abstracts", len(pmids))
	}
	b.WriteString(" is summarized above. Sources: ")
	if len(pmids) > 3 {
		pmids = pmids[:3]
	}
	for i, pmid := range pmids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("PMID:")
		b.WriteString(pmid)
	}
	b.WriteString(".")
	return b.String(), nil
}

func (s *Synthetic) Close() error { return nil }

func extractQuestion(prompt string) string {
	const marker = "Question: "
	i := strings.Index(prompt, marker)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(marker):]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

func extractPMIDs(prompt string) []string {
	const marker = "PMID:"
	seen := make(map[string]bool)
	var pmids []string
	for rest := prompt; ; {
		i := strings.Index(rest, marker)
		if i < 0 {
			break
		}
		rest = rest[i+len(marker):]
		end := 0
		for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
			end++
		}
		if end > 0 {
			id := rest[:end]
			if !seen[id] {
				seen[id] = true
				pmids = append(pmids, id)
			}
		}
	}
	return pmids
}
