// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review drives the adaptive literature discovery pipeline: it
// consumes a research plan, iterates search strategies against the search
// collaborator with query refinement between passes, filters candidates by
// assessed relevance, keeps the accepted set free of near-duplicates, and
// synthesizes cross-paper insights. Every action is recorded in the run's
// progress log; collaborator failures degrade to documented fallbacks and
// never abort a run.
package review

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/litreview/internal/analysis"
	"github.com/pdiddy/litreview/internal/cache"
	"github.com/pdiddy/litreview/internal/llm"
	"github.com/pdiddy/litreview/internal/search"
	"github.com/pdiddy/litreview/pkg/types"
)

// Searcher is the search collaborator boundary.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, years search.YearRange) ([]types.Paper, error)
	References(ctx context.Context, paperID string, limit int) ([]types.Paper, error)
}

// Generator is the generation collaborator boundary.
type Generator interface {
	GeneratePlan(ctx context.Context, title, abstract string) (types.ResearchPlan, error)
	RefineQuery(ctx context.Context, original string, plan types.ResearchPlan, accepted []*types.Paper, focus string, iteration int) (string, error)
	AssessRelevance(ctx context.Context, p *types.Paper, userTitle, userAbstract string) (llm.Assessment, error)
	ExtractKeywords(ctx context.Context, title, abstract string, n int) ([]string, error)
	ExtractFindings(ctx context.Context, title, abstract string) ([]string, error)
	ClusterPapers(ctx context.Context, papers []*types.Paper, k int) error
	ExtractInsights(ctx context.Context, papers []*types.Paper, questions []string) ([]types.KeyInsight, error)
	GenerateReview(ctx context.Context, title, abstract string, papers []*types.Paper, insights []types.KeyInsight) (string, error)
}

const (
	topPapersForContext = 5
	clusterTarget       = 3
	keywordsPerPaper    = 5
)

// Options configures one discovery run.
type Options struct {
	// TargetPapers is the accepted-set size the run aims for.
	TargetPapers int

	// RelevanceThreshold drops candidates scoring below it.
	RelevanceThreshold float64

	// DuplicateThreshold is the similarity a pair must strictly exceed to
	// be resolved as near-duplicates.
	DuplicateThreshold float64

	// MaxIterations bounds the number of search passes.
	MaxIterations int

	// ExpandReferences follows references of the top accepted papers when
	// the main loop ends under target.
	ExpandReferences bool

	// Years optionally restricts search results by publication year.
	Years search.YearRange

	// SearchLimit bounds results per query; ReferenceLimit bounds
	// references fetched per paper during expansion.
	SearchLimit    int
	ReferenceLimit int

	// AssessmentWorkers bounds the relevance-assessment pool within a
	// batch. Assessment of a batch always completes before filtering.
	AssessmentWorkers int
}

// OptionsFromConfig maps the config structs onto run options, applying
// defaults for unset values.
func OptionsFromConfig(cfg types.ReviewConfig, searchCfg types.SearchConfig) Options {
	opts := Options{
		TargetPapers:       cfg.TargetPapers,
		RelevanceThreshold: cfg.RelevanceThreshold,
		DuplicateThreshold: cfg.DuplicateThreshold,
		MaxIterations:      cfg.MaxIterations,
		ExpandReferences:   cfg.ExpandReferences,
		Years:              search.YearRange{From: cfg.YearFrom, To: cfg.YearTo},
		SearchLimit:        searchCfg.MaxResults,
		ReferenceLimit:     searchCfg.ReferenceLimit,
		AssessmentWorkers:  cfg.AssessmentWorkers,
	}
	if opts.TargetPapers == 0 {
		opts.TargetPapers = 15
	}
	if opts.RelevanceThreshold == 0 {
		opts.RelevanceThreshold = 0.5
	}
	if opts.DuplicateThreshold == 0 {
		opts.DuplicateThreshold = analysis.DefaultDuplicateThreshold
	}
	if opts.MaxIterations == 0 {
		opts.MaxIterations = 3
	}
	if opts.SearchLimit == 0 {
		opts.SearchLimit = 15
	}
	if opts.ReferenceLimit == 0 {
		opts.ReferenceLimit = 10
	}
	if opts.AssessmentWorkers == 0 {
		opts.AssessmentWorkers = 4
	}
	return opts
}

// Validate rejects configurations the pipeline cannot run with.
func (o Options) Validate() error {
	if o.TargetPapers < 0 {
		return fmt.Errorf("target papers must be non-negative, got %d", o.TargetPapers)
	}
	if o.RelevanceThreshold < 0 || o.RelevanceThreshold > 1 {
		return fmt.Errorf("relevance threshold must be in [0,1], got %g", o.RelevanceThreshold)
	}
	if o.DuplicateThreshold < 0 || o.DuplicateThreshold > 1 {
		return fmt.Errorf("duplicate threshold must be in [0,1], got %g", o.DuplicateThreshold)
	}
	if o.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", o.MaxIterations)
	}
	if o.Years.From != 0 && o.Years.To != 0 && o.Years.From > o.Years.To {
		return fmt.Errorf("year range %d-%d is inverted", o.Years.From, o.Years.To)
	}
	if o.AssessmentWorkers < 1 {
		return fmt.Errorf("assessment workers must be at least 1, got %d", o.AssessmentWorkers)
	}
	return nil
}

// Result is everything a discovery run produces. Rendering to Markdown,
// BibTeX, or progress reports happens downstream.
type Result struct {
	Plan     types.ResearchPlan
	Papers   []*types.Paper
	Insights []types.KeyInsight
	Review   string

	// Candidates holds every raw candidate seen, without dedup, for
	// diagnostics.
	Candidates []*types.Paper

	Progress types.ResearchProgress
}

// Agent orchestrates one or more discovery runs over the collaborator
// boundaries. It owns the response cache; callers substitute fakes for any
// of the three in tests.
type Agent struct {
	searcher Searcher
	engine   Generator
	store    *cache.Store
	opts     Options
	w        io.Writer
}

// NewAgent validates the options and wires the collaborators together.
// Invalid options are fatal here, before any network traffic.
func NewAgent(searcher Searcher, engine Generator, store *cache.Store, opts Options, w io.Writer) (*Agent, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid review options: %w", err)
	}
	if w == nil {
		w = io.Discard
	}
	return &Agent{searcher: searcher, engine: engine, store: store, opts: opts, w: w}, nil
}

// Close releases the agent's cache store.
func (a *Agent) Close() error {
	return a.store.Close()
}

// Run executes a full literature review for the user's title and abstract.
// It always returns a usable Result; the error is non-nil only when the
// caller's context was cancelled, and even then the Result reflects all
// work completed up to the cancellation boundary.
func (a *Agent) Run(ctx context.Context, title, abstract string) (*Result, error) {
	progress := types.ResearchProgress{
		RunID:        uuid.NewString(),
		StartTime:    time.Now(),
		CurrentStage: types.StagePlanning,
	}

	fmt.Fprintf(a.w, "generating research plan for: %s\n", title)
	plan, err := a.engine.GeneratePlan(ctx, title, abstract)
	if err != nil {
		progress.RecordStatus(fmt.Sprintf("Plan generation degraded to fallback: %v", err), types.StagePlanning)
		fmt.Fprintf(a.w, "warning: %v (using fallback plan)\n", err)
	}
	progress.RecordStatus(
		fmt.Sprintf("Research plan generated with %d research questions", len(plan.ResearchQuestions)),
		types.StagePlanning)

	result := &Result{Plan: plan}

	a.searchLoop(ctx, plan, result, &progress)

	if a.opts.ExpandReferences && len(result.Papers) < a.opts.TargetPapers && ctx.Err() == nil {
		a.expandReferences(ctx, plan, result, &progress)
	}

	// The accepted collection never exceeds the target: keep the most
	// relevant papers when a batch overshot.
	if len(result.Papers) > a.opts.TargetPapers {
		sort.SliceStable(result.Papers, func(i, j int) bool {
			return result.Papers[i].RelevanceScore > result.Papers[j].RelevanceScore
		})
		result.Papers = result.Papers[:a.opts.TargetPapers]
		progress.Selected = len(result.Papers)
	}

	if ctx.Err() == nil {
		a.analyze(ctx, result, &progress)
		a.synthesize(ctx, plan, result, &progress)
	} else {
		progress.RecordStatus("Run cancelled; skipping analysis and synthesis", "")
	}

	progress.EndTime = time.Now()
	progress.RecordStatus(
		fmt.Sprintf("Literature review completed with %d papers", len(result.Papers)),
		types.StageCompleted)
	result.Progress = progress

	return result, ctx.Err()
}

// searchLoop runs up to MaxIterations passes over the plan's strategies,
// stopping as soon as the accepted set reaches the target.
func (a *Agent) searchLoop(ctx context.Context, plan types.ResearchPlan, result *Result, progress *types.ResearchProgress) {
	progress.RecordStatus("Starting literature search", types.StageSearching)

	for iteration := 0; iteration < a.opts.MaxIterations; iteration++ {
		if ctx.Err() != nil {
			return
		}

		var batch []*types.Paper
		for i, strategy := range plan.SearchStrategies {
			if ctx.Err() != nil {
				return
			}

			query := strategy.Query
			if query == "" {
				query = plan.Title
			}
			if iteration > 0 {
				refined, err := a.engine.RefineQuery(ctx, query, plan, result.Papers, strategy.Focus, iteration)
				if err != nil {
					progress.RecordStatus(fmt.Sprintf("Query refinement fell back to the original query: %v", err), "")
				}
				query = refined
			}

			progress.RecordStatus(fmt.Sprintf("Executing search query (iteration %d, %s): %s", iteration+1, strategy.Name, query), "")
			papers, err := a.searcher.Search(ctx, query, a.opts.SearchLimit, a.opts.Years)
			if err != nil {
				progress.RecordQuery(query, 0, i)
				progress.RecordStatus(fmt.Sprintf("Search failed for strategy %q: %v", strategy.Name, err), "")
				fmt.Fprintf(a.w, "warning: search failed: %v\n", err)
				continue
			}

			progress.RecordQuery(query, len(papers), i)
			progress.TotalFound += len(papers)
			for j := range papers {
				batch = append(batch, &papers[j])
			}
		}

		accepted := a.processBatch(ctx, plan, batch, result, progress)
		progress.Iterations++
		progress.Selected = len(result.Papers)
		progress.RecordStatus(
			fmt.Sprintf("Iteration %d complete: found %d papers, accepted %d", iteration+1, len(batch), accepted), "")

		if len(result.Papers) >= a.opts.TargetPapers {
			progress.RecordStatus(
				fmt.Sprintf("Found %d relevant papers, meeting the target of %d", len(result.Papers), a.opts.TargetPapers), "")
			return
		}
		if iteration < a.opts.MaxIterations-1 {
			progress.RecordStatus(
				fmt.Sprintf("Need more papers (have %d, want %d); starting iteration %d",
					len(result.Papers), a.opts.TargetPapers, iteration+2), "")
		}
	}
}

// processBatch assesses, filters, and dedups one batch of candidates, then
// appends survivors to the accepted set and all raw candidates to the
// diagnostic pool. Returns how many papers were accepted.
func (a *Agent) processBatch(ctx context.Context, plan types.ResearchPlan, batch []*types.Paper, result *Result, progress *types.ResearchProgress) int {
	result.Candidates = append(result.Candidates, batch...)
	if len(batch) == 0 {
		return 0
	}

	// Relevance scoring for the whole batch completes before any
	// filtering or dedup starts.
	for _, note := range a.assessBatch(ctx, plan, batch) {
		progress.RecordStatus(note, "")
	}

	var filtered []*types.Paper
	for _, p := range batch {
		if p.RelevanceScore >= a.opts.RelevanceThreshold {
			filtered = append(filtered, p)
		}
	}
	progress.AfterFiltering += len(filtered)

	analysis.MarkDuplicates(filtered, a.opts.DuplicateThreshold)
	survivors := analysis.Survivors(filtered)
	survivors = analysis.FilterAgainstAccepted(survivors, result.Papers, a.opts.DuplicateThreshold)

	result.Papers = append(result.Papers, survivors...)
	return len(survivors)
}

// assessBatch scores every candidate on a bounded worker pool. Each worker
// writes only its own paper; fallback notes are collected and returned so
// the single-threaded progress log stays ordered.
func (a *Agent) assessBatch(ctx context.Context, plan types.ResearchPlan, batch []*types.Paper) []string {
	var (
		mu    sync.Mutex
		notes []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.AssessmentWorkers)
	for _, p := range batch {
		p := p
		g.Go(func() error {
			assessment, err := a.engine.AssessRelevance(gctx, p, plan.Title, plan.Abstract)
			if err != nil {
				mu.Lock()
				notes = append(notes, fmt.Sprintf("Relevance assessment fell back to neutral for %q: %v", p.Title, err))
				mu.Unlock()
			}
			p.RelevanceScore = assessment.Relevance
			p.ConfidenceScore = assessment.Confidence
			p.RelevanceAspects = assessment.Aspects
			return nil
		})
	}
	g.Wait()
	return notes
}

// expandReferences follows the outbound references of the most relevant
// accepted papers until the target is reached or the top papers are
// exhausted.
func (a *Agent) expandReferences(ctx context.Context, plan types.ResearchPlan, result *Result, progress *types.ResearchProgress) {
	progress.RecordStatus("Expanding search by following references", types.StageSearching)

	top := make([]*types.Paper, len(result.Papers))
	copy(top, result.Papers)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].RelevanceScore > top[j].RelevanceScore
	})
	if len(top) > topPapersForContext {
		top = top[:topPapersForContext]
	}

	for _, paper := range top {
		if ctx.Err() != nil {
			return
		}

		refs, err := a.searcher.References(ctx, paper.ID, a.opts.ReferenceLimit)
		if err != nil {
			progress.RecordStatus(fmt.Sprintf("Reference fetch failed for %q: %v", paper.Title, err), "")
			fmt.Fprintf(a.w, "warning: reference fetch failed: %v\n", err)
			continue
		}
		progress.TotalFound += len(refs)

		batch := make([]*types.Paper, 0, len(refs))
		for i := range refs {
			batch = append(batch, &refs[i])
		}

		accepted := a.processBatch(ctx, plan, batch, result, progress)
		progress.Selected = len(result.Papers)
		progress.RecordStatus(
			fmt.Sprintf("Added %d relevant references from paper: %s", accepted, paper.Title), "")

		if len(result.Papers) >= a.opts.TargetPapers {
			progress.RecordStatus(
				fmt.Sprintf("Found %d relevant papers, meeting the target of %d", len(result.Papers), a.opts.TargetPapers), "")
			return
		}
	}
}

// analyze enriches accepted papers with keywords and findings, then
// clusters them by topic when there are enough to cluster.
func (a *Agent) analyze(ctx context.Context, result *Result, progress *types.ResearchProgress) {
	if len(result.Papers) == 0 {
		return
	}
	progress.RecordStatus("Analyzing papers", types.StageAnalyzing)

	analysis.EnsureKeywords(ctx, a.engine, result.Papers, keywordsPerPaper, a.w)
	analysis.EnsureFindings(ctx, a.engine, result.Papers, a.w)

	if len(result.Papers) >= 3 {
		progress.RecordStatus("Clustering papers by topic", "")
		if err := a.engine.ClusterPapers(ctx, result.Papers, clusterTarget); err != nil {
			progress.RecordStatus(fmt.Sprintf("Clustering fell back to a single cluster: %v", err), "")
		}
	}
}

// synthesize extracts cross-paper insights and generates the review text.
func (a *Agent) synthesize(ctx context.Context, plan types.ResearchPlan, result *Result, progress *types.ResearchProgress) {
	progress.RecordStatus("Extracting key insights across papers", types.StageSynthesizing)
	insights, err := a.engine.ExtractInsights(ctx, result.Papers, plan.ResearchQuestions)
	if err != nil {
		progress.RecordStatus(fmt.Sprintf("Insight extraction fell back to an empty list: %v", err), "")
	}
	result.Insights = insights

	progress.RecordStatus("Generating literature review", "")
	review, err := a.engine.GenerateReview(ctx, plan.Title, plan.Abstract, result.Papers, insights)
	if err != nil {
		progress.RecordStatus(fmt.Sprintf("Review generation failed; run continues without review text: %v", err), "")
		fmt.Fprintf(a.w, "warning: review generation failed: %v\n", err)
	}
	result.Review = review
}
