// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/litreview/pkg/types"
)

// Enricher abstracts the generation collaborator operations the analysis
// stage needs, so tests can supply a mock.
type Enricher interface {
	ExtractKeywords(ctx context.Context, title, abstract string, n int) ([]string, error)
	ExtractFindings(ctx context.Context, title, abstract string) ([]string, error)
}

// EnsureKeywords fills in keywords for papers that have none. Papers with
// keywords are left untouched, so the call is idempotent. Per-paper
// failures produce a warning on w and leave that paper unchanged.
func EnsureKeywords(ctx context.Context, e Enricher, papers []*types.Paper, n int, w io.Writer) {
	for _, p := range papers {
		if len(p.Keywords) > 0 {
			continue
		}
		keywords, err := e.ExtractKeywords(ctx, p.Title, p.Abstract, n)
		if err != nil {
			fmt.Fprintf(w, "warning: keyword extraction failed for %s: %v\n", p.ID, err)
			continue
		}
		p.Keywords = keywords
	}
}

// EnsureFindings fills in key findings for papers that have an abstract but
// no findings yet. Idempotent like EnsureKeywords.
func EnsureFindings(ctx context.Context, e Enricher, papers []*types.Paper, w io.Writer) {
	for _, p := range papers {
		if len(p.KeyFindings) > 0 || p.Abstract == "" {
			continue
		}
		findings, err := e.ExtractFindings(ctx, p.Title, p.Abstract)
		if err != nil {
			fmt.Fprintf(w, "warning: findings extraction failed for %s: %v\n", p.ID, err)
			continue
		}
		p.KeyFindings = findings
	}
}
