// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the litreview pipeline:
// the bibliographic Paper record, the ResearchPlan that drives discovery,
// the append-only ResearchProgress log, and cross-paper KeyInsights.
package types

import (
	"regexp"
	"strconv"
	"strings"
)

// Author is one paper author with an optional external identifier.
type Author struct {
	Name string `json:"name" yaml:"name"`
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
}

// Paper is a bibliographic record under consideration for the review corpus.
// Identity comes from the search collaborator; relevance, duplication, and
// cluster metadata are filled in by the pipeline as it runs.
type Paper struct {
	// ID is the canonical identifier from the search collaborator
	// (Semantic Scholar paper ID, DOI, or arXiv ID). Unique within a run.
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract; empty when the source has none.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists the paper authors in source order.
	Authors []Author `json:"authors" yaml:"authors"`

	// Venue is the publication venue, if known.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Year is the publication year; zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// CitationCount is the number of citing works; zero when unknown.
	CitationCount int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// URL points at the source record.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// RelevanceScore is the estimated topical fit to the research plan,
	// between 0.0 and 1.0.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// ConfidenceScore is the confidence in the relevance assessment,
	// between 0.0 and 1.0.
	ConfidenceScore float64 `json:"confidence_score" yaml:"confidence_score"`

	// RelevanceAspects breaks the relevance assessment down by dimension
	// (topical, methodological, contribution, recency).
	RelevanceAspects map[string]float64 `json:"relevance_aspects,omitempty" yaml:"relevance_aspects,omitempty"`

	// Keywords are extracted from the paper's title and abstract.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// DuplicateOf holds the ID of the canonical paper when this record was
	// resolved as a near-duplicate. A marked paper is excluded from the
	// accepted count.
	DuplicateOf string `json:"duplicate_of,omitempty" yaml:"duplicate_of,omitempty"`

	// ClusterID is the topic cluster this paper was assigned to. Nil until
	// clustering runs.
	ClusterID *int `json:"cluster_id,omitempty" yaml:"cluster_id,omitempty"`

	// KeyFindings are the paper's main findings, extracted from the abstract.
	KeyFindings []string `json:"key_findings,omitempty" yaml:"key_findings,omitempty"`

	// MethodologyNotes hold observations about the paper's methodology.
	MethodologyNotes []string `json:"methodology_notes,omitempty" yaml:"methodology_notes,omitempty"`
}

var nonAlpha = regexp.MustCompile(`[^a-z]`)

// BibTeXKey derives a citation key of the form [first author's last name][year]
// (e.g. "smith2020"). Anonymous papers use "anonymous"; unknown years use
// "unknown".
func (p *Paper) BibTeXKey() string {
	author := "anonymous"
	if len(p.Authors) > 0 && strings.TrimSpace(p.Authors[0].Name) != "" {
		parts := strings.Fields(p.Authors[0].Name)
		author = nonAlpha.ReplaceAllString(strings.ToLower(parts[len(parts)-1]), "")
		if author == "" {
			author = "anonymous"
		}
	}
	year := "unknown"
	if p.Year > 0 {
		year = strconv.Itoa(p.Year)
	}
	return author + year
}

// BibTeXEntryType selects @article or @inproceedings from the venue name.
func (p *Paper) BibTeXEntryType() string {
	venue := strings.ToLower(p.Venue)
	if strings.Contains(venue, "conference") || strings.Contains(venue, "proceedings") {
		return "inproceedings"
	}
	return "article"
}

// InsightType classifies a cross-paper insight.
type InsightType string

const (
	InsightMethodology InsightType = "methodology"
	InsightFinding     InsightType = "finding"
	InsightGap         InsightType = "gap"
	InsightTrend       InsightType = "trend"
	InsightControversy InsightType = "controversy"
)

// ValidInsightType reports whether t is one of the defined insight types.
func ValidInsightType(t InsightType) bool {
	switch t {
	case InsightMethodology, InsightFinding, InsightGap, InsightTrend, InsightControversy:
		return true
	}
	return false
}

// KeyInsight is a synthesized observation spanning one or more accepted
// papers, tied back to the plan's research questions.
type KeyInsight struct {
	// Type is one of methodology, finding, gap, trend, or controversy.
	Type InsightType `json:"type" yaml:"type"`

	// Description explains the insight in two or three sentences.
	Description string `json:"description" yaml:"description"`

	// Sources lists the IDs of the papers supporting this insight. Source
	// references the generation collaborator could not map to a paper are
	// retained verbatim.
	Sources []string `json:"sources" yaml:"sources"`

	// Confidence is the collaborator's confidence in the insight, 0.0-1.0.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Keywords label the insight's topic.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}
