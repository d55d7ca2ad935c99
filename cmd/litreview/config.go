// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/litreview/pkg/types"
)

func init() {
	viper.SetDefault("search.timeout", "30s")
	viper.SetDefault("search.user_agent", "litreview/"+version)
	viper.SetDefault("search.max_results", 15)
	viper.SetDefault("search.reference_limit", 10)

	viper.SetDefault("llm.timeout", "120s")
	viper.SetDefault("llm.model", "claude-sonnet-4-20250514")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 1024)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.dir", ".cache")
	viper.SetDefault("cache.max_age", "168h")

	viper.SetDefault("review.target_papers", 15)
	viper.SetDefault("review.relevance_threshold", 0.5)
	viper.SetDefault("review.duplicate_threshold", 0.8)
	viper.SetDefault("review.max_iterations", 3)
	viper.SetDefault("review.expand_references", false)
	viper.SetDefault("review.assessment_workers", 4)
	viper.SetDefault("review.output_dir", "output")
}

// pipelineConfig assembles the stage configurations from viper settings and
// loaded secrets. Explicit config values win over secrets files.
func pipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("search.timeout"),
				UserAgent: viper.GetString("search.user_agent"),
			},
			MaxResults:     viper.GetInt("search.max_results"),
			ReferenceLimit: viper.GetInt("search.reference_limit"),
			APIKey:         secretDefault("semantic-scholar-api-key", viper.GetString("search.api_key")),
		},
		LLM: types.LLMConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout: viper.GetDuration("llm.timeout"),
			},
			Model:       viper.GetString("llm.model"),
			APIKey:      secretDefault("anthropic-api-key", viper.GetString("llm.api_key")),
			Temperature: viper.GetFloat64("llm.temperature"),
			MaxTokens:   viper.GetInt("llm.max_tokens"),
		},
		Cache: types.CacheConfig{
			Enabled: viper.GetBool("cache.enabled"),
			Dir:     viper.GetString("cache.dir"),
			MaxAge:  cacheMaxAge(),
		},
		Review: types.ReviewConfig{
			TargetPapers:       viper.GetInt("review.target_papers"),
			RelevanceThreshold: viper.GetFloat64("review.relevance_threshold"),
			DuplicateThreshold: viper.GetFloat64("review.duplicate_threshold"),
			MaxIterations:      viper.GetInt("review.max_iterations"),
			ExpandReferences:   viper.GetBool("review.expand_references"),
			YearFrom:           viper.GetInt("review.year_from"),
			YearTo:             viper.GetInt("review.year_to"),
			AssessmentWorkers:  viper.GetInt("review.assessment_workers"),
			OutputDir:          viper.GetString("review.output_dir"),
		},
	}
}

func cacheMaxAge() time.Duration {
	if d := viper.GetDuration("cache.max_age"); d > 0 {
		return d
	}
	return 7 * 24 * time.Hour
}
