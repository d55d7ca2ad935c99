// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/litreview/internal/analysis"
	"github.com/pdiddy/litreview/pkg/types"
)

const (
	defaultMaxTokens   = 1024
	reviewMaxTokens    = 4096
	defaultTemperature = 0.2
)

// Engine exposes the pipeline's high-level generation operations over a
// Completer. Every operation returns a usable value even when the
// collaborator fails or answers garbage; a non-nil error then reports that
// the documented fallback was used, so the caller can log it and continue.
type Engine struct {
	Completer   Completer
	MaxTokens   int
	Temperature float64
}

// NewEngine wraps a completer with the configured sampling defaults.
func NewEngine(c Completer, cfg types.LLMConfig) *Engine {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = defaultTemperature
	}
	return &Engine{Completer: c, MaxTokens: maxTokens, Temperature: temp}
}

func (e *Engine) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = e.MaxTokens
	}
	text, err := e.Completer.Complete(ctx, prompt, maxTokens, e.Temperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// GeneratePlan asks the collaborator for a research plan. A transport
// failure or unparseable response yields the minimal fallback plan: one
// research question, naive keywords, and a single strategy searching the
// literal title.
func (e *Engine) GeneratePlan(ctx context.Context, title, abstract string) (types.ResearchPlan, error) {
	prompt, err := render(planPromptTmpl, struct{ Title, Abstract string }{title, abstract})
	if err != nil {
		return fallbackPlan(title, abstract), err
	}

	text, err := e.complete(ctx, prompt, 0)
	if err != nil {
		return fallbackPlan(title, abstract), fmt.Errorf("plan generation: %w", err)
	}

	var data struct {
		ResearchQuestions   []string               `json:"research_questions"`
		Keywords            []string               `json:"keywords"`
		FocusAreas          []string               `json:"focus_areas"`
		SearchStrategies    []types.SearchStrategy `json:"search_strategies"`
		RecencyPreference   float64                `json:"recency_preference"`
		MethodologyInterest float64                `json:"methodology_interest"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &data); err != nil {
		return fallbackPlan(title, abstract), fmt.Errorf("parsing plan response: %w", err)
	}
	if len(data.SearchStrategies) == 0 {
		return fallbackPlan(title, abstract), fmt.Errorf("plan response contains no search strategies")
	}

	return types.ResearchPlan{
		Title:               title,
		Abstract:            abstract,
		Keywords:            data.Keywords,
		ResearchQuestions:   data.ResearchQuestions,
		SearchStrategies:    data.SearchStrategies,
		FocusAreas:          data.FocusAreas,
		MethodologyInterest: clamp01(data.MethodologyInterest),
		RecencyPreference:   clamp01(data.RecencyPreference),
		CreatedAt:           time.Now(),
		Status:              types.PlanCreated,
	}, nil
}

// fallbackPlan is the documented degraded plan used when plan generation fails.
func fallbackPlan(title, abstract string) types.ResearchPlan {
	return types.ResearchPlan{
		Title:               title,
		Abstract:            abstract,
		Keywords:            naiveKeywords(title, 8),
		ResearchQuestions:   []string{"What are the key findings in this research area?"},
		FocusAreas:          []string{"General overview of the field"},
		SearchStrategies:    []types.SearchStrategy{{Name: "Basic search", Focus: "General overview", Query: title}},
		MethodologyInterest: 0.5,
		RecencyPreference:   0.5,
		CreatedAt:           time.Now(),
		Status:              types.PlanCreated,
	}
}

// naiveKeywords pulls distinct words longer than three characters from the
// text, in order of appearance.
func naiveKeywords(text string, n int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range strings.Fields(analysis.NormalizeTitle(text)) {
		if len(w) <= 3 {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == n {
			break
		}
	}
	return out
}

// RefineQuery asks for an improved query conditioned on the plan, the top
// accepted papers so far, the strategy's focus area, and the iteration
// index. On any failure the original query is returned unchanged.
func (e *Engine) RefineQuery(ctx context.Context, original string, plan types.ResearchPlan, accepted []*types.Paper, focus string, iteration int) (string, error) {
	// The prompt sees the five highest-ranked accepted papers.
	top := make([]*types.Paper, len(accepted))
	copy(top, accepted)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].RelevanceScore > top[j].RelevanceScore
	})
	if len(top) > 5 {
		top = top[:5]
	}

	var found strings.Builder
	for i, p := range top {
		fmt.Fprintf(&found, "%d. %s", i+1, p.Title)
		if len(p.Authors) > 0 && p.Authors[0].Name != "" {
			fmt.Fprintf(&found, " (by %s)", p.Authors[0].Name)
		}
		found.WriteString("\n")
	}
	if len(accepted) > 5 {
		fmt.Fprintf(&found, "...and %d more papers\n", len(accepted)-5)
	}

	prompt, err := render(refinePromptTmpl, struct {
		Title, Abstract, Focus, Query, Found string
		Total, Iteration                     int
	}{plan.Title, plan.Abstract, focus, original, found.String(), len(accepted), iteration})
	if err != nil {
		return original, err
	}

	text, err := e.complete(ctx, prompt, 0)
	if err != nil {
		return original, fmt.Errorf("query refinement: %w", err)
	}

	refined := strings.Trim(strings.TrimSpace(text), `"`)
	if refined == "" {
		return original, fmt.Errorf("query refinement returned empty text")
	}
	return refined, nil
}

// Assessment is the outcome of one relevance evaluation.
type Assessment struct {
	Relevance  float64
	Confidence float64
	Aspects    map[string]float64
}

func neutralAssessment() Assessment {
	return Assessment{
		Relevance:  0.5,
		Confidence: 0.3,
		Aspects: map[string]float64{
			"topical_relevance":        0.5,
			"methodological_relevance": 0.5,
			"contribution_relevance":   0.5,
			"recency_relevance":        0.5,
		},
	}
}

// AssessRelevance scores a candidate against the user's research. Papers
// without descriptive text skip the collaborator entirely: a lexical
// title-similarity heuristic yields the score at confidence 0.3. A
// malformed collaborator response degrades to the neutral assessment.
func (e *Engine) AssessRelevance(ctx context.Context, p *types.Paper, userTitle, userAbstract string) (Assessment, error) {
	if p.Abstract == "" {
		sim := analysis.TitleSimilarity(p.Title, userTitle)
		return Assessment{
			Relevance:  math.Min(1.0, sim*1.5),
			Confidence: 0.3,
			Aspects:    map[string]float64{"title_similarity": sim},
		}, nil
	}

	prompt, err := render(relevancePromptTmpl, struct {
		UserTitle, UserAbstract, PaperTitle, PaperAbstract string
	}{userTitle, userAbstract, p.Title, p.Abstract})
	if err != nil {
		return neutralAssessment(), err
	}

	text, err := e.complete(ctx, prompt, 0)
	if err != nil {
		return neutralAssessment(), fmt.Errorf("relevance assessment: %w", err)
	}

	var data struct {
		OverallRelevance float64            `json:"overall_relevance"`
		Confidence       float64            `json:"confidence"`
		Aspects          map[string]float64 `json:"aspects"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &data); err != nil {
		return neutralAssessment(), fmt.Errorf("parsing relevance response: %w", err)
	}

	a := Assessment{
		Relevance:  clamp01(data.OverallRelevance),
		Confidence: clamp01(data.Confidence),
		Aspects:    data.Aspects,
	}
	if a.Aspects == nil {
		a.Aspects = neutralAssessment().Aspects
	}
	return a, nil
}

// ExtractKeywords returns up to n keywords for a title/abstract pair.
func (e *Engine) ExtractKeywords(ctx context.Context, title, abstract string, n int) ([]string, error) {
	if n <= 0 {
		n = 5
	}
	prompt, err := render(keywordsPromptTmpl, struct {
		Title, Abstract string
		N               int
	}{title, abstract, n})
	if err != nil {
		return nil, err
	}

	text, err := e.complete(ctx, prompt, 0)
	if err != nil {
		return nil, fmt.Errorf("keyword extraction: %w", err)
	}

	var keywords []string
	for _, k := range strings.Split(text, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) > n {
		keywords = keywords[:n]
	}
	return keywords, nil
}

// ExtractFindings returns the paper's key findings, one per response line.
func (e *Engine) ExtractFindings(ctx context.Context, title, abstract string) ([]string, error) {
	prompt, err := render(findingsPromptTmpl, struct{ Title, Abstract string }{title, abstract})
	if err != nil {
		return nil, err
	}

	text, err := e.complete(ctx, prompt, 0)
	if err != nil {
		return nil, fmt.Errorf("findings extraction: %w", err)
	}

	var findings []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			findings = append(findings, line)
		}
	}
	return findings, nil
}

// ClusterPapers groups the papers into k topic clusters and writes each
// paper's ClusterID. Membership in the response is positional (1-based).
// Papers the response fails to place land in the smallest numeric cluster
// present rather than being dropped. On a malformed response every paper
// lands in cluster 0.
func (e *Engine) ClusterPapers(ctx context.Context, papers []*types.Paper, k int) error {
	if k <= 0 {
		k = 3
	}
	if len(papers) < k {
		// Fewer papers than clusters: one cluster each.
		for i, p := range papers {
			id := i
			p.ClusterID = &id
		}
		return nil
	}

	prompt, err := render(clusterPromptTmpl, struct {
		Papers       string
		K, KMinusOne int
	}{summarizePapers(papers, 200, false), k, k - 1})
	if err != nil {
		assignAll(papers, 0)
		return err
	}

	text, err := e.complete(ctx, prompt, 0)
	if err != nil {
		assignAll(papers, 0)
		return fmt.Errorf("clustering: %w", err)
	}

	var data map[string]struct {
		Name   string `json:"name"`
		Papers []any  `json:"papers"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &data); err != nil {
		assignAll(papers, 0)
		return fmt.Errorf("parsing cluster response: %w", err)
	}

	// Numeric cluster ids only, visited in sorted order so assignment does
	// not depend on map iteration.
	var ids []int
	byID := make(map[int][]any)
	for key, info := range data {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		ids = append(ids, id)
		byID[id] = info.Papers
	}
	sort.Ints(ids)

	if len(ids) == 0 {
		assignAll(papers, 0)
		return fmt.Errorf("cluster response contains no numeric cluster ids")
	}

	for _, id := range ids {
		for _, member := range byID[id] {
			if idx, ok := positionIndex(member, len(papers)); ok {
				cid := id
				papers[idx].ClusterID = &cid
			}
		}
	}

	// Unplaced papers fall back to the smallest cluster id.
	fallback := ids[0]
	for _, p := range papers {
		if p.ClusterID == nil {
			cid := fallback
			p.ClusterID = &cid
		}
	}
	return nil
}

func assignAll(papers []*types.Paper, id int) {
	for _, p := range papers {
		cid := id
		p.ClusterID = &cid
	}
}

// positionIndex converts a 1-based positional reference (number or numeric
// string) into a slice index.
func positionIndex(v any, n int) (int, bool) {
	var pos int
	switch t := v.(type) {
	case float64:
		pos = int(t)
	case string:
		p, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		pos = p
	default:
		return 0, false
	}
	if pos < 1 || pos > n {
		return 0, false
	}
	return pos - 1, true
}

// ExtractInsights synthesizes cross-paper insights tied to the research
// questions. Source references are 1-based positions and are translated to
// paper IDs; out-of-range or non-numeric references are kept verbatim.
// Malformed responses degrade to an empty list.
func (e *Engine) ExtractInsights(ctx context.Context, papers []*types.Paper, questions []string) ([]types.KeyInsight, error) {
	if len(papers) == 0 {
		return nil, nil
	}

	var qs strings.Builder
	for _, q := range questions {
		fmt.Fprintf(&qs, "- %s\n", q)
	}

	prompt, err := render(insightsPromptTmpl, struct{ Questions, Papers string }{qs.String(), summarizePapers(papers, 300, true)})
	if err != nil {
		return nil, err
	}

	text, err := e.complete(ctx, prompt, 0)
	if err != nil {
		return nil, fmt.Errorf("insight extraction: %w", err)
	}

	// Source references arrive as numbers or strings depending on the
	// response, so they decode loosely and go through positionIndex.
	var data []struct {
		Type         string   `json:"type"`
		Description  string   `json:"description"`
		SourcePapers []any    `json:"source_papers"`
		Confidence   float64  `json:"confidence"`
		Keywords     []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &data); err != nil {
		return nil, fmt.Errorf("parsing insights response: %w", err)
	}

	var insights []types.KeyInsight
	for _, item := range data {
		t := types.InsightType(item.Type)
		if !types.ValidInsightType(t) {
			t = types.InsightFinding
		}
		var sources []string
		for _, src := range item.SourcePapers {
			if idx, ok := positionIndex(src, len(papers)); ok {
				sources = append(sources, papers[idx].ID)
			} else if s, ok := src.(string); ok {
				sources = append(sources, s)
			} else {
				sources = append(sources, fmt.Sprint(src))
			}
		}
		insights = append(insights, types.KeyInsight{
			Type:        t,
			Description: item.Description,
			Sources:     sources,
			Confidence:  clamp01(item.Confidence),
			Keywords:    item.Keywords,
		})
	}
	return insights, nil
}

// GenerateReview produces the literature-review Markdown text.
func (e *Engine) GenerateReview(ctx context.Context, title, abstract string, papers []*types.Paper, insights []types.KeyInsight) (string, error) {
	var insightText strings.Builder
	for i, ins := range insights {
		fmt.Fprintf(&insightText, "%d. [%s] %s\n", i+1, strings.ToUpper(string(ins.Type)), ins.Description)
		if len(ins.Keywords) > 0 {
			fmt.Fprintf(&insightText, "   Keywords: %s\n", strings.Join(ins.Keywords, ", "))
		}
	}

	prompt, err := render(reviewPromptTmpl, struct {
		Title, Abstract, Papers, Insights string
	}{title, abstract, summarizePapersWithRelevance(papers), insightText.String()})
	if err != nil {
		return "", err
	}

	text, err := e.complete(ctx, prompt, reviewMaxTokens)
	if err != nil {
		return "", fmt.Errorf("review generation: %w", err)
	}
	return text, nil
}

// summarizePapersWithRelevance is the review prompt's paper listing, which
// additionally shows each paper's relevance score.
func summarizePapersWithRelevance(papers []*types.Paper) string {
	var b strings.Builder
	for i, p := range papers {
		fmt.Fprintf(&b, "%d. %q", i+1, p.Title)
		if len(p.Authors) > 0 && p.Authors[0].Name != "" {
			fmt.Fprintf(&b, " by %s", p.Authors[0].Name)
			if len(p.Authors) > 1 {
				b.WriteString(" et al.")
			}
		}
		if p.Year > 0 {
			fmt.Fprintf(&b, " (%d)", p.Year)
		}
		fmt.Fprintf(&b, " [relevance: %.2f]\n", p.RelevanceScore)
		if p.Abstract != "" {
			fmt.Fprintf(&b, "   Abstract: %s\n", truncate(p.Abstract, 150))
		}
		if len(p.KeyFindings) > 0 {
			b.WriteString("   Key findings:\n")
			for _, f := range firstN(p.KeyFindings, 3) {
				fmt.Fprintf(&b, "   - %s\n", f)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// extractJSON strips Markdown code fences and any prose surrounding the
// first JSON object or array in untrusted collaborator output.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')
	start, end := objStart, strings.LastIndexByte(s, '}')
	if objStart < 0 || (arrStart >= 0 && arrStart < objStart) {
		start, end = arrStart, strings.LastIndexByte(s, ']')
	}
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
