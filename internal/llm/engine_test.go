// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreview/pkg/types"
)

// scriptedCompleter returns a fixed response (or error) and records the
// last prompt it was given.
type scriptedCompleter struct {
	response string
	err      error
	prompt   string
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func newTestEngine(response string, err error) (*Engine, *scriptedCompleter) {
	c := &scriptedCompleter{response: response, err: err}
	return NewEngine(c, types.LLMConfig{}), c
}

func TestGeneratePlan(t *testing.T) {
	response := "```json\n" + `{
		"research_questions": ["How do transformers scale?"],
		"keywords": ["transformers", "scaling"],
		"focus_areas": ["Efficiency"],
		"search_strategies": [
			{"name": "Core", "focus": "Scaling laws", "query": "transformer scaling laws"}
		],
		"recency_preference": 0.7,
		"methodology_interest": 1.4
	}` + "\n```"
	e, _ := newTestEngine(response, nil)

	plan, err := e.GeneratePlan(context.Background(), "Scaling Transformers", "We study scaling.")
	require.NoError(t, err)

	assert.Equal(t, "Scaling Transformers", plan.Title)
	assert.Equal(t, []string{"How do transformers scale?"}, plan.ResearchQuestions)
	require.Len(t, plan.SearchStrategies, 1)
	assert.Equal(t, "transformer scaling laws", plan.SearchStrategies[0].Query)
	assert.Equal(t, 0.7, plan.RecencyPreference)
	// Out-of-range values are clamped.
	assert.Equal(t, 1.0, plan.MethodologyInterest)
	assert.Equal(t, types.PlanCreated, plan.Status)
	assert.False(t, plan.CreatedAt.IsZero())
}

func TestGeneratePlanFallback(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{"transport failure", "", fmt.Errorf("connection refused")},
		{"unparseable response", "I think you should search for transformers.", nil},
		{"no strategies", `{"research_questions": ["q"], "search_strategies": []}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(tt.response, tt.err)

			plan, err := e.GeneratePlan(context.Background(), "Scaling Laws for Neural Networks", "An abstract.")
			require.Error(t, err)

			// Fallback: one question, one literal-title strategy, naive keywords.
			assert.Equal(t, "Scaling Laws for Neural Networks", plan.Title)
			require.Len(t, plan.SearchStrategies, 1)
			assert.Equal(t, "Scaling Laws for Neural Networks", plan.SearchStrategies[0].Query)
			assert.Len(t, plan.ResearchQuestions, 1)
			assert.Contains(t, plan.Keywords, "scaling")
			assert.Contains(t, plan.Keywords, "neural")
			assert.NotContains(t, plan.Keywords, "for")
		})
	}
}

func TestRefineQuery(t *testing.T) {
	plan := types.ResearchPlan{Title: "T", Abstract: "A"}

	t.Run("strips surrounding quotes", func(t *testing.T) {
		e, _ := newTestEngine("\"improved query terms\"\n", nil)
		got, err := e.RefineQuery(context.Background(), "original", plan, nil, "focus", 1)
		require.NoError(t, err)
		assert.Equal(t, "improved query terms", got)
	})

	t.Run("returns original on transport failure", func(t *testing.T) {
		e, _ := newTestEngine("", fmt.Errorf("timeout"))
		got, err := e.RefineQuery(context.Background(), "original", plan, nil, "focus", 1)
		require.Error(t, err)
		assert.Equal(t, "original", got)
	})

	t.Run("returns original on empty response", func(t *testing.T) {
		e, _ := newTestEngine("   ", nil)
		got, err := e.RefineQuery(context.Background(), "original", plan, nil, "focus", 1)
		require.Error(t, err)
		assert.Equal(t, "original", got)
	})

	t.Run("top accepted papers appear in the prompt", func(t *testing.T) {
		accepted := []*types.Paper{
			{Title: "Paper One"}, {Title: "Paper Two"}, {Title: "Paper Three"},
			{Title: "Paper Four"}, {Title: "Paper Five"}, {Title: "Paper Six"},
		}
		e, c := newTestEngine("next query", nil)
		_, err := e.RefineQuery(context.Background(), "original", plan, accepted, "focus", 2)
		require.NoError(t, err)
		assert.Contains(t, c.prompt, "Paper Five")
		assert.NotContains(t, c.prompt, "Paper Six")
		assert.Contains(t, c.prompt, "...and 1 more papers")
	})
}

func TestAssessRelevance(t *testing.T) {
	userTitle := "deep learning for vision"
	userAbstract := "We study vision models."

	t.Run("parses a well-formed response", func(t *testing.T) {
		e, _ := newTestEngine(`{"overall_relevance": 0.85, "confidence": 0.9, "aspects": {"topical_relevance": 0.8}}`, nil)
		p := &types.Paper{Title: "Some Paper", Abstract: "About vision."}

		a, err := e.AssessRelevance(context.Background(), p, userTitle, userAbstract)
		require.NoError(t, err)
		assert.Equal(t, 0.85, a.Relevance)
		assert.Equal(t, 0.9, a.Confidence)
		assert.Equal(t, 0.8, a.Aspects["topical_relevance"])
	})

	t.Run("no abstract uses the title heuristic without calling the model", func(t *testing.T) {
		c := &scriptedCompleter{err: fmt.Errorf("must not be called")}
		e := NewEngine(c, types.LLMConfig{})
		p := &types.Paper{Title: "deep learning for vision tasks"}

		a, err := e.AssessRelevance(context.Background(), p, userTitle, userAbstract)
		require.NoError(t, err)
		// Jaccard 0.8, boosted by 1.5 and capped at 1.0.
		assert.Equal(t, 1.0, a.Relevance)
		assert.Equal(t, 0.3, a.Confidence)
		assert.InDelta(t, 0.8, a.Aspects["title_similarity"], 1e-9)
		assert.Empty(t, c.prompt)
	})

	t.Run("malformed response degrades to neutral", func(t *testing.T) {
		e, _ := newTestEngine("this paper seems quite relevant", nil)
		p := &types.Paper{Title: "Some Paper", Abstract: "About vision."}

		a, err := e.AssessRelevance(context.Background(), p, userTitle, userAbstract)
		require.Error(t, err)
		assert.Equal(t, 0.5, a.Relevance)
		assert.Equal(t, 0.3, a.Confidence)
		assert.Len(t, a.Aspects, 4)
	})

	t.Run("out-of-range scores are clamped", func(t *testing.T) {
		e, _ := newTestEngine(`{"overall_relevance": 1.7, "confidence": -0.2}`, nil)
		p := &types.Paper{Title: "Some Paper", Abstract: "About vision."}

		a, err := e.AssessRelevance(context.Background(), p, userTitle, userAbstract)
		require.NoError(t, err)
		assert.Equal(t, 1.0, a.Relevance)
		assert.Equal(t, 0.0, a.Confidence)
	})
}

func TestExtractKeywords(t *testing.T) {
	e, _ := newTestEngine("graph neural networks, message passing, node embedding, , extra one, beyond cap", nil)
	got, err := e.ExtractKeywords(context.Background(), "T", "A", 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"graph neural networks", "message passing", "node embedding", "extra one"}, got)
}

func TestExtractFindings(t *testing.T) {
	e, _ := newTestEngine("First finding.\n\n  Second finding.  \nThird finding.\n", nil)
	got, err := e.ExtractFindings(context.Background(), "T", "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"First finding.", "Second finding.", "Third finding."}, got)
}

func clusterTestPapers(n int) []*types.Paper {
	papers := make([]*types.Paper, n)
	for i := range papers {
		papers[i] = &types.Paper{
			ID:    fmt.Sprintf("p%d", i+1),
			Title: fmt.Sprintf("Completely Distinct Subject Matter Number %d", i+1),
		}
	}
	return papers
}

func TestClusterPapers(t *testing.T) {
	t.Run("fewer papers than clusters get one cluster each", func(t *testing.T) {
		c := &scriptedCompleter{err: fmt.Errorf("must not be called")}
		e := NewEngine(c, types.LLMConfig{})
		papers := clusterTestPapers(2)

		require.NoError(t, e.ClusterPapers(context.Background(), papers, 3))
		require.NotNil(t, papers[0].ClusterID)
		require.NotNil(t, papers[1].ClusterID)
		assert.NotEqual(t, *papers[0].ClusterID, *papers[1].ClusterID)
		assert.Empty(t, c.prompt)
	})

	t.Run("exactly k papers still go to the collaborator", func(t *testing.T) {
		e, c := newTestEngine(`{"0": {"name": "A", "papers": [1]}, "1": {"name": "B", "papers": [2]}, "2": {"name": "C", "papers": [3]}}`, nil)
		papers := clusterTestPapers(3)

		require.NoError(t, e.ClusterPapers(context.Background(), papers, 3))
		assert.NotEmpty(t, c.prompt)
		assert.Equal(t, 0, *papers[0].ClusterID)
		assert.Equal(t, 1, *papers[1].ClusterID)
		assert.Equal(t, 2, *papers[2].ClusterID)
	})

	t.Run("assigns members by 1-based position", func(t *testing.T) {
		e, _ := newTestEngine(`{"0": {"name": "A", "papers": [1, 3]}, "1": {"name": "B", "papers": ["2", 4]}}`, nil)
		papers := clusterTestPapers(4)

		require.NoError(t, e.ClusterPapers(context.Background(), papers, 2))
		assert.Equal(t, 0, *papers[0].ClusterID)
		assert.Equal(t, 1, *papers[1].ClusterID)
		assert.Equal(t, 0, *papers[2].ClusterID)
		assert.Equal(t, 1, *papers[3].ClusterID)
	})

	t.Run("unplaced papers fall into the smallest cluster", func(t *testing.T) {
		e, _ := newTestEngine(`{"2": {"name": "Only", "papers": [1]}, "5": {"name": "Other", "papers": [2]}}`, nil)
		papers := clusterTestPapers(4)

		require.NoError(t, e.ClusterPapers(context.Background(), papers, 2))
		assert.Equal(t, 2, *papers[0].ClusterID)
		assert.Equal(t, 5, *papers[1].ClusterID)
		assert.Equal(t, 2, *papers[2].ClusterID)
		assert.Equal(t, 2, *papers[3].ClusterID)
	})

	t.Run("non-numeric keys are ignored", func(t *testing.T) {
		e, _ := newTestEngine(`{"theory": {"papers": [1]}, "0": {"name": "A", "papers": [2]}}`, nil)
		papers := clusterTestPapers(3)

		require.NoError(t, e.ClusterPapers(context.Background(), papers, 2))
		for _, p := range papers {
			require.NotNil(t, p.ClusterID)
			assert.Equal(t, 0, *p.ClusterID)
		}
	})

	t.Run("malformed response assigns everything to cluster zero", func(t *testing.T) {
		e, _ := newTestEngine("the papers form three natural groups", nil)
		papers := clusterTestPapers(4)

		err := e.ClusterPapers(context.Background(), papers, 2)
		require.Error(t, err)
		for _, p := range papers {
			require.NotNil(t, p.ClusterID)
			assert.Equal(t, 0, *p.ClusterID)
		}
	})

	t.Run("out-of-range positions are skipped", func(t *testing.T) {
		e, _ := newTestEngine(`{"0": {"name": "A", "papers": [1, 99, 0, -3]}, "1": {"name": "B", "papers": [2, 3, 4]}}`, nil)
		papers := clusterTestPapers(4)

		require.NoError(t, e.ClusterPapers(context.Background(), papers, 2))
		assert.Equal(t, 0, *papers[0].ClusterID)
		assert.Equal(t, 1, *papers[1].ClusterID)
	})
}

func TestExtractInsights(t *testing.T) {
	papers := []*types.Paper{
		{ID: "id-a", Title: "Paper A"},
		{ID: "id-b", Title: "Paper B"},
	}

	t.Run("maps 1-based sources to paper IDs", func(t *testing.T) {
		e, _ := newTestEngine(`[
			{"type": "finding", "description": "D1", "source_papers": ["1", "2"], "confidence": 0.8, "keywords": ["k"]},
			{"type": "gap", "description": "D2", "source_papers": ["2"], "confidence": 0.6}
		]`, nil)

		insights, err := e.ExtractInsights(context.Background(), papers, []string{"Q1"})
		require.NoError(t, err)
		require.Len(t, insights, 2)
		assert.Equal(t, types.InsightFinding, insights[0].Type)
		assert.Equal(t, []string{"id-a", "id-b"}, insights[0].Sources)
		assert.Equal(t, types.InsightGap, insights[1].Type)
		assert.Equal(t, []string{"id-b"}, insights[1].Sources)
	})

	t.Run("numeric sources are accepted and mapped", func(t *testing.T) {
		e, _ := newTestEngine(`[
			{"type": "finding", "description": "D1", "source_papers": [1, 2], "confidence": 0.8},
			{"type": "methodology", "description": "D2", "source_papers": [2, 9], "confidence": 0.7}
		]`, nil)

		insights, err := e.ExtractInsights(context.Background(), papers, []string{"Q1"})
		require.NoError(t, err)
		require.Len(t, insights, 2)
		assert.Equal(t, []string{"id-a", "id-b"}, insights[0].Sources)
		// Out-of-range numbers are kept verbatim, not dropped.
		assert.Equal(t, []string{"id-b", "9"}, insights[1].Sources)
	})

	t.Run("unmappable sources are kept verbatim", func(t *testing.T) {
		e, _ := newTestEngine(`[{"type": "trend", "description": "D", "source_papers": ["1", "7", "the survey by Smith"], "confidence": 0.5}]`, nil)

		insights, err := e.ExtractInsights(context.Background(), papers, nil)
		require.NoError(t, err)
		require.Len(t, insights, 1)
		assert.Equal(t, []string{"id-a", "7", "the survey by Smith"}, insights[0].Sources)
	})

	t.Run("unknown insight types become findings", func(t *testing.T) {
		e, _ := newTestEngine(`[{"type": "breakthrough", "description": "D", "confidence": 1.9}]`, nil)

		insights, err := e.ExtractInsights(context.Background(), papers, nil)
		require.NoError(t, err)
		require.Len(t, insights, 1)
		assert.Equal(t, types.InsightFinding, insights[0].Type)
		assert.Equal(t, 1.0, insights[0].Confidence)
	})

	t.Run("malformed response yields an empty list", func(t *testing.T) {
		e, _ := newTestEngine("several insights come to mind", nil)

		insights, err := e.ExtractInsights(context.Background(), papers, nil)
		require.Error(t, err)
		assert.Empty(t, insights)
	})

	t.Run("no papers is a no-op", func(t *testing.T) {
		c := &scriptedCompleter{err: fmt.Errorf("must not be called")}
		e := NewEngine(c, types.LLMConfig{})

		insights, err := e.ExtractInsights(context.Background(), nil, nil)
		require.NoError(t, err)
		assert.Empty(t, insights)
		assert.Empty(t, c.prompt)
	})
}

func TestGenerateReview(t *testing.T) {
	e, c := newTestEngine("## Literature Review\n\nBody.", nil)
	papers := []*types.Paper{{ID: "a", Title: "Paper A", RelevanceScore: 0.9}}
	insights := []types.KeyInsight{{Type: types.InsightFinding, Description: "Key point.", Keywords: []string{"k1"}}}

	got, err := e.GenerateReview(context.Background(), "My Title", "My abstract.", papers, insights)
	require.NoError(t, err)
	assert.Equal(t, "## Literature Review\n\nBody.", got)
	assert.Contains(t, c.prompt, "Paper A")
	assert.Contains(t, c.prompt, "Key point.")
	assert.Contains(t, c.prompt, "[FINDING]")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"fenced json", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced without language", "```\n[1, 2]\n```", `[1, 2]`},
		{"prose around object", `Here you go: {"a": 1}. Hope it helps!`, `{"a": 1}`},
		{"array before object", `[{"a": 1}]`, `[{"a": 1}]`},
		{"no json at all", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestNaiveKeywords(t *testing.T) {
	got := naiveKeywords("The Quick Brown Fox Jumps Over the Lazy Dog", 3)
	assert.Equal(t, []string{"quick", "brown", "jumps"}, got)
}
