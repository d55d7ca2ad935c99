package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "litreview/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the search collaborator.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the per-query result limit (default 15).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// ReferenceLimit bounds how many references are fetched per paper
	// during reference expansion (default 10).
	ReferenceLimit int `json:"reference_limit" yaml:"reference_limit"`

	// APIKey is an optional Semantic Scholar API key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// LLMConfig holds settings for the generation collaborator.
type LLMConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the generation model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the generation API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Temperature is the default sampling temperature (default 0.2).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxTokens is the default completion budget (default 1024).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// CacheConfig holds settings for the collaborator response cache.
type CacheConfig struct {
	// Enabled turns caching on. When false every lookup is a miss.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the directory the cache database lives in (default ".cache").
	Dir string `json:"dir" yaml:"dir"`

	// MaxAge is how long an entry stays valid (default 168h, seven days).
	MaxAge time.Duration `json:"max_age" yaml:"max_age"`
}

// ReviewConfig holds settings for the discovery controller.
type ReviewConfig struct {
	// TargetPapers is the accepted-set size the run aims for (default 15).
	TargetPapers int `json:"target_papers" yaml:"target_papers"`

	// RelevanceThreshold drops candidates scoring below it (default 0.5).
	RelevanceThreshold float64 `json:"relevance_threshold" yaml:"relevance_threshold"`

	// DuplicateThreshold is the normalized-title Jaccard similarity a pair
	// must strictly exceed to be resolved as near-duplicates (default 0.8).
	// A pair at exactly the threshold is kept as two papers.
	DuplicateThreshold float64 `json:"duplicate_threshold" yaml:"duplicate_threshold"`

	// MaxIterations bounds the number of search passes (default 3).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// ExpandReferences follows references of top papers when the main loop
	// ends under target.
	ExpandReferences bool `json:"expand_references" yaml:"expand_references"`

	// YearFrom/YearTo optionally restrict results to a publication year
	// range. Zero means unbounded on that side.
	YearFrom int `json:"year_from,omitempty" yaml:"year_from,omitempty"`
	YearTo   int `json:"year_to,omitempty" yaml:"year_to,omitempty"`

	// AssessmentWorkers bounds the relevance-assessment worker pool
	// (default 4). One worker keeps the run strictly sequential.
	AssessmentWorkers int `json:"assessment_workers" yaml:"assessment_workers"`

	// OutputDir receives the rendered run artifacts (default "output").
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Search SearchConfig `json:"search" yaml:"search"`
	LLM    LLMConfig    `json:"llm" yaml:"llm"`
	Cache  CacheConfig  `json:"cache" yaml:"cache"`
	Review ReviewConfig `json:"review" yaml:"review"`
}
