// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a completed discovery run into its output
// artifacts: the literature review document, a BibTeX bibliography, the
// research plan, the progress report, and the key-insights summary.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/internal/review"
	"github.com/pdiddy/litreview/pkg/types"
)

const (
	reviewFile   = "literature_review.md"
	bibFile      = "references.bib"
	planFile     = "research_plan.md"
	progressFile = "progress_report.md"
	insightsFile = "key_insights.md"
	metadataFile = "metadata.yaml"
)

// RenderPlan formats a research plan as Markdown.
func RenderPlan(plan types.ResearchPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Research Plan: %s\n\n", plan.Title)
	if plan.Abstract != "" {
		fmt.Fprintf(&b, "%s\n\n", plan.Abstract)
	}

	if len(plan.ResearchQuestions) > 0 {
		b.WriteString("## Research Questions\n\n")
		for i, q := range plan.ResearchQuestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
		b.WriteString("\n")
	}

	if len(plan.Keywords) > 0 {
		fmt.Fprintf(&b, "## Keywords\n\n%s\n\n", strings.Join(plan.Keywords, ", "))
	}

	if len(plan.FocusAreas) > 0 {
		b.WriteString("## Focus Areas\n\n")
		for _, area := range plan.FocusAreas {
			fmt.Fprintf(&b, "- %s\n", area)
		}
		b.WriteString("\n")
	}

	if len(plan.SearchStrategies) > 0 {
		b.WriteString("## Search Strategies\n\n")
		for i, s := range plan.SearchStrategies {
			fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, s.Name, s.Focus)
			fmt.Fprintf(&b, "   - Query: `%s`\n", s.Query)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Preferences\n\n")
	fmt.Fprintf(&b, "- Recency preference: %.2f\n", plan.RecencyPreference)
	fmt.Fprintf(&b, "- Methodology interest: %.2f\n", plan.MethodologyInterest)
	return b.String()
}

// RenderProgress formats the run's progress log as Markdown: the funnel
// counts, every executed query, and the full status timeline.
func RenderProgress(p types.ResearchProgress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Progress Report\n\nRun ID: `%s`\n\n", p.RunID)
	fmt.Fprintf(&b, "- Started: %s\n", p.StartTime.Format(time.RFC3339))
	if !p.EndTime.IsZero() {
		fmt.Fprintf(&b, "- Finished: %s (%.1fs)\n", p.EndTime.Format(time.RFC3339), p.EndTime.Sub(p.StartTime).Seconds())
	}
	fmt.Fprintf(&b, "- Stage: %s\n", p.CurrentStage)
	fmt.Fprintf(&b, "- Iterations: %d\n\n", p.Iterations)

	b.WriteString("## Candidate Funnel\n\n")
	fmt.Fprintf(&b, "| Stage | Papers |\n|---|---|\n")
	fmt.Fprintf(&b, "| Found | %d |\n", p.TotalFound)
	fmt.Fprintf(&b, "| After relevance filtering | %d |\n", p.AfterFiltering)
	fmt.Fprintf(&b, "| Selected | %d |\n\n", p.Selected)

	if len(p.Queries) > 0 {
		b.WriteString("## Queries\n\n")
		for i, q := range p.Queries {
			fmt.Fprintf(&b, "%d. `%s` — %d results (strategy %d)\n", i+1, q.Query, q.ResultCount, q.StrategyIndex)
		}
		b.WriteString("\n")
	}

	if len(p.Events) > 0 {
		b.WriteString("## Timeline\n\n")
		for _, ev := range p.Events {
			fmt.Fprintf(&b, "- %s [%s] %s\n", ev.Time.Format("15:04:05"), ev.Stage, ev.Message)
		}
	}
	return b.String()
}

// RenderInsights formats the key insights as Markdown, grouped by type and
// with source references resolved to paper titles where possible.
func RenderInsights(insights []types.KeyInsight, papers []*types.Paper) string {
	var b strings.Builder
	b.WriteString("# Key Insights\n\n")
	if len(insights) == 0 {
		b.WriteString("No insights were extracted for this run.\n")
		return b.String()
	}

	byID := make(map[string]*types.Paper, len(papers))
	for _, p := range papers {
		byID[p.ID] = p
	}

	order := []types.InsightType{
		types.InsightFinding, types.InsightMethodology, types.InsightTrend,
		types.InsightGap, types.InsightControversy,
	}
	for _, t := range order {
		var group []types.KeyInsight
		for _, ins := range insights {
			if ins.Type == t {
				group = append(group, ins)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", titleCase(string(t)))
		for _, ins := range group {
			fmt.Fprintf(&b, "- %s (confidence: %.2f)\n", ins.Description, ins.Confidence)
			for _, src := range ins.Sources {
				if p, ok := byID[src]; ok {
					fmt.Fprintf(&b, "  - Source: %s\n", p.Title)
				} else {
					fmt.Fprintf(&b, "  - Source: %s\n", src)
				}
			}
			if len(ins.Keywords) > 0 {
				fmt.Fprintf(&b, "  - Keywords: %s\n", strings.Join(ins.Keywords, ", "))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderPapers formats the accepted papers as an annotated bibliography,
// ordered by relevance.
func RenderPapers(papers []*types.Paper) string {
	sorted := make([]*types.Paper, len(papers))
	copy(sorted, papers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RelevanceScore > sorted[j].RelevanceScore
	})

	var b strings.Builder
	fmt.Fprintf(&b, "# Selected Papers (%d)\n\n", len(sorted))
	for i, p := range sorted {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, p.Title)
		if len(p.Authors) > 0 {
			names := make([]string, len(p.Authors))
			for j, a := range p.Authors {
				names[j] = a.Name
			}
			fmt.Fprintf(&b, "**Authors:** %s\n\n", strings.Join(names, ", "))
		}
		if p.Venue != "" || p.Year > 0 {
			fmt.Fprintf(&b, "**Published:** %s", p.Venue)
			if p.Year > 0 {
				fmt.Fprintf(&b, " (%d)", p.Year)
			}
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "**Relevance:** %.2f (confidence %.2f)", p.RelevanceScore, p.ConfidenceScore)
		if p.ClusterID != nil {
			fmt.Fprintf(&b, " · Cluster %d", *p.ClusterID)
		}
		b.WriteString("\n\n")
		if len(p.Keywords) > 0 {
			fmt.Fprintf(&b, "**Keywords:** %s\n\n", strings.Join(p.Keywords, ", "))
		}
		if len(p.KeyFindings) > 0 {
			b.WriteString("**Key findings:**\n\n")
			for _, f := range p.KeyFindings {
				fmt.Fprintf(&b, "- %s\n", f)
			}
			b.WriteString("\n")
		}
		if p.URL != "" {
			fmt.Fprintf(&b, "[Source](%s)\n\n", p.URL)
		}
	}
	return b.String()
}

// BibTeX renders the accepted papers as a BibTeX bibliography. Key
// collisions are disambiguated with alphabetic suffixes (smith2020,
// smith2020a, ...).
func BibTeX(papers []*types.Paper) string {
	var b strings.Builder
	used := make(map[string]int)
	for _, p := range papers {
		key := p.BibTeXKey()
		if n, ok := used[key]; ok {
			used[key] = n + 1
			key = fmt.Sprintf("%s%c", key, 'a'+n)
		} else {
			used[key] = 0
		}

		fmt.Fprintf(&b, "@%s{%s,\n", p.BibTeXEntryType(), key)
		fmt.Fprintf(&b, "  title = {%s},\n", escapeBibTeX(p.Title))
		if len(p.Authors) > 0 {
			names := make([]string, len(p.Authors))
			for i, a := range p.Authors {
				names[i] = escapeBibTeX(a.Name)
			}
			fmt.Fprintf(&b, "  author = {%s},\n", strings.Join(names, " and "))
		}
		if p.Year > 0 {
			fmt.Fprintf(&b, "  year = {%d},\n", p.Year)
		}
		if p.Venue != "" {
			field := "journal"
			if p.BibTeXEntryType() == "inproceedings" {
				field = "booktitle"
			}
			fmt.Fprintf(&b, "  %s = {%s},\n", field, escapeBibTeX(p.Venue))
		}
		if p.URL != "" {
			fmt.Fprintf(&b, "  url = {%s},\n", p.URL)
		}
		b.WriteString("}\n\n")
	}
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func escapeBibTeX(s string) string {
	r := strings.NewReplacer("{", "\\{", "}", "\\}", "&", "\\&", "%", "\\%", "$", "\\$", "#", "\\#", "_", "\\_")
	return r.Replace(s)
}

// runMetadata is the machine-readable run summary written next to the
// Markdown artifacts.
type runMetadata struct {
	RunID       string                 `yaml:"run_id"`
	Title       string                 `yaml:"title"`
	GeneratedAt time.Time              `yaml:"generated_at"`
	Papers      []*types.Paper         `yaml:"papers"`
	Insights    []types.KeyInsight     `yaml:"insights"`
	Plan        types.ResearchPlan     `yaml:"plan"`
	Progress    types.ResearchProgress `yaml:"progress"`
}

// WriteArtifacts writes every output artifact for a completed run into dir,
// creating it if needed. Files are overwritten.
func WriteArtifacts(dir string, result *review.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	reviewText := result.Review
	if reviewText == "" {
		reviewText = "No literature review text was generated for this run.\n"
	}
	reviewText += "\n\n" + RenderPapers(result.Papers)

	meta, err := yaml.Marshal(runMetadata{
		RunID:       result.Progress.RunID,
		Title:       result.Plan.Title,
		GeneratedAt: time.Now(),
		Papers:      result.Papers,
		Insights:    result.Insights,
		Plan:        result.Plan,
		Progress:    result.Progress,
	})
	if err != nil {
		return fmt.Errorf("marshaling run metadata: %w", err)
	}

	files := map[string]string{
		reviewFile:   reviewText,
		bibFile:      BibTeX(result.Papers),
		planFile:     RenderPlan(result.Plan),
		progressFile: RenderProgress(result.Progress),
		insightsFile: RenderInsights(result.Insights, result.Papers),
		metadataFile: string(meta),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}
