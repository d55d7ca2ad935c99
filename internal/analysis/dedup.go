// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analysis resolves near-duplicate papers and enriches accepted
// papers with keywords and findings.
package analysis

import (
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/litreview/pkg/types"
)

// DefaultDuplicateThreshold is the normalized-title Jaccard similarity a
// pair must strictly exceed to be treated as the same work.
const DefaultDuplicateThreshold = 0.8

// NormalizeTitle lowercases the title, strips punctuation, and collapses
// whitespace.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func titleTokens(title string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range strings.Fields(NormalizeTitle(title)) {
		tokens[w] = struct{}{}
	}
	return tokens
}

// TitleSimilarity returns the Jaccard similarity of the two titles' word
// sets after normalization. Titles that normalize to nothing score 0.
func TitleSimilarity(a, b string) float64 {
	ta, tb := titleTokens(a), titleTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	intersection := 0
	for w := range ta {
		if _, ok := tb[w]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

// IsLikelyDuplicate reports whether two papers are near-duplicates: either
// their titles match exactly ignoring case, or the normalized-title Jaccard
// similarity strictly exceeds the threshold. A similarity of exactly the
// threshold is not a duplicate.
func IsLikelyDuplicate(a, b *types.Paper, threshold float64) bool {
	if a.Title == "" || b.Title == "" {
		return false
	}
	if strings.EqualFold(a.Title, b.Title) {
		return true
	}
	return TitleSimilarity(a.Title, b.Title) > threshold
}

// MarkDuplicates resolves near-duplicates within one batch. Papers are
// ordered by citation count descending so the higher-authority record stays
// canonical; for each ordered pair the later paper is marked DuplicateOf
// the earlier one on a match. Already-marked papers are never re-marked, so
// running detection on an already-resolved batch changes nothing. Returns
// the number of papers newly marked.
func MarkDuplicates(papers []*types.Paper, threshold float64) int {
	sorted := make([]*types.Paper, len(papers))
	copy(sorted, papers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CitationCount > sorted[j].CitationCount
	})

	marked := 0
	for i, canonical := range sorted {
		if canonical.DuplicateOf != "" {
			continue
		}
		for _, candidate := range sorted[i+1:] {
			if candidate.DuplicateOf != "" {
				continue
			}
			if IsLikelyDuplicate(canonical, candidate, threshold) {
				candidate.DuplicateOf = canonical.ID
				marked++
			}
		}
	}
	return marked
}

// FilterAgainstAccepted tests each unmarked batch paper against every
// already-accepted paper, in accepted order and without re-sorting. Matches
// are marked DuplicateOf the accepted paper and excluded from the returned
// slice. The duplicate set is computed first, then the batch is filtered
// into a new slice.
func FilterAgainstAccepted(batch, accepted []*types.Paper, threshold float64) []*types.Paper {
	duplicateOf := make(map[string]string)
	for _, p := range batch {
		if p.DuplicateOf != "" {
			continue
		}
		for _, existing := range accepted {
			if IsLikelyDuplicate(p, existing, threshold) {
				duplicateOf[p.ID] = existing.ID
				break
			}
		}
	}

	survivors := make([]*types.Paper, 0, len(batch))
	for _, p := range batch {
		if id, ok := duplicateOf[p.ID]; ok {
			p.DuplicateOf = id
			continue
		}
		if p.DuplicateOf != "" {
			continue
		}
		survivors = append(survivors, p)
	}
	return survivors
}

// Survivors returns the batch papers not marked as duplicates, in order.
func Survivors(batch []*types.Paper) []*types.Paper {
	out := make([]*types.Paper, 0, len(batch))
	for _, p := range batch {
		if p.DuplicateOf == "" {
			out = append(out, p)
		}
	}
	return out
}
