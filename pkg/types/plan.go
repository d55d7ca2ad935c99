// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PlanStatus tracks the lifecycle of a research plan.
type PlanStatus string

const (
	PlanCreated    PlanStatus = "created"
	PlanInProgress PlanStatus = "in_progress"
	PlanCompleted  PlanStatus = "completed"
)

// SearchStrategy is a named query template used to diversify discovery.
type SearchStrategy struct {
	// Name labels the strategy (e.g. "Methodology survey").
	Name string `json:"name" yaml:"name"`

	// Focus describes what this strategy is looking for.
	Focus string `json:"focus" yaml:"focus"`

	// Query is the literal search query used on the first pass.
	Query string `json:"query" yaml:"query"`

	// Filters carries optional backend-specific filter hints.
	Filters map[string]string `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// ResearchPlan organizes a literature review run. It is created once, by
// the generation collaborator or by hand, and never mutated afterwards.
type ResearchPlan struct {
	// Title and Abstract describe the user's own work, the anchor every
	// relevance assessment is made against.
	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract" yaml:"abstract"`

	// Keywords are search terms derived from the user's work.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// ResearchQuestions are the questions the review should answer.
	ResearchQuestions []string `json:"research_questions" yaml:"research_questions"`

	// SearchStrategies are executed in order on every pass.
	SearchStrategies []SearchStrategy `json:"search_strategies" yaml:"search_strategies"`

	// FocusAreas name the themes the review should cover.
	FocusAreas []string `json:"focus_areas" yaml:"focus_areas"`

	// MethodologyInterest weights how much methodological detail matters,
	// 0.0 (findings only) to 1.0 (deeply interested in methods).
	MethodologyInterest float64 `json:"methodology_interest" yaml:"methodology_interest"`

	// RecencyPreference weights recent papers against seminal older work,
	// 0.0 (prefer seminal works) to 1.0 (prefer newest papers).
	RecencyPreference float64 `json:"recency_preference" yaml:"recency_preference"`

	// CreatedAt is when the plan was generated.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Status is created, in_progress, or completed.
	Status PlanStatus `json:"status" yaml:"status"`
}

// Stage names the pipeline stage a run is in.
type Stage string

const (
	StagePlanning     Stage = "planning"
	StageSearching    Stage = "searching"
	StageAnalyzing    Stage = "analyzing"
	StageSynthesizing Stage = "synthesizing"
	StageCompleted    Stage = "completed"
)

// QueryRecord is one executed search query and its outcome.
type QueryRecord struct {
	Time          time.Time `json:"time" yaml:"time"`
	Query         string    `json:"query" yaml:"query"`
	ResultCount   int       `json:"result_count" yaml:"result_count"`
	StrategyIndex int       `json:"strategy_index" yaml:"strategy_index"`
}

// StatusEvent is one timestamped entry in the run's status log.
type StatusEvent struct {
	Time    time.Time `json:"time" yaml:"time"`
	Message string    `json:"message" yaml:"message"`
	Stage   Stage     `json:"stage" yaml:"stage"`
}

// ResearchProgress is the append-only log of a discovery run. Only the
// controller writes to it; it performs no I/O itself and is serialized for
// external rendering once the run ends.
type ResearchProgress struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id" yaml:"run_id"`

	StartTime time.Time `json:"start_time" yaml:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`

	// TotalFound counts every raw candidate returned by the search
	// collaborator, before filtering or dedup.
	TotalFound int `json:"total_found" yaml:"total_found"`

	// AfterFiltering counts candidates that survived the relevance filter.
	AfterFiltering int `json:"after_filtering" yaml:"after_filtering"`

	// Selected is the size of the accepted set.
	Selected int `json:"selected" yaml:"selected"`

	// Iterations is the number of completed search passes.
	Iterations int `json:"iterations" yaml:"iterations"`

	// Queries logs every search call in execution order.
	Queries []QueryRecord `json:"queries" yaml:"queries"`

	// Events logs every status message in order.
	Events []StatusEvent `json:"events" yaml:"events"`

	// CurrentStage is the stage the run is in.
	CurrentStage Stage `json:"current_stage" yaml:"current_stage"`
}

// RecordStatus appends a timestamped status event. When stage is non-empty
// it also becomes the current stage; otherwise the event carries the stage
// the run is already in.
func (p *ResearchProgress) RecordStatus(message string, stage Stage) {
	if stage != "" {
		p.CurrentStage = stage
	}
	p.Events = append(p.Events, StatusEvent{
		Time:    time.Now(),
		Message: message,
		Stage:   p.CurrentStage,
	})
}

// RecordQuery appends one executed query and its result count.
func (p *ResearchProgress) RecordQuery(query string, resultCount, strategyIndex int) {
	p.Queries = append(p.Queries, QueryRecord{
		Time:          time.Now(),
		Query:         query,
		ResultCount:   resultCount,
		StrategyIndex: strategyIndex,
	})
}
