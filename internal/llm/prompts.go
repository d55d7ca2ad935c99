// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/litreview/pkg/types"
)

// Prompt templates for every structured operation. Each instructs the model
// to answer with bare JSON (or bare text) so the defensive parsers have a
// fighting chance.

var planPromptTmpl = template.Must(template.New("plan").Parse(`You are a research assistant helping to create a literature review. Generate a research plan based on a paper title and abstract.

USER'S PAPER:
Title: {{.Title}}
Abstract: {{.Abstract}}

Generate a comprehensive research plan that includes:
1. 3-5 specific research questions derived from the user's paper
2. 5-8 relevant keywords useful for searching
3. 3-4 specific focus areas for the literature review
4. 3-4 search strategies, each with a specific focus and query
5. A recency preference (0.0 = prefer seminal works regardless of age, 1.0 = highly prefer recent papers)
6. A methodology interest level (0.0 = focus only on findings, 1.0 = deeply interested in methodological detail)

Format your response as JSON:
{
  "research_questions": ["question1", "question2"],
  "keywords": ["keyword1", "keyword2"],
  "focus_areas": ["area1", "area2"],
  "search_strategies": [
    {"name": "Strategy name", "focus": "What this strategy focuses on", "query": "The search query to use", "filters": {}}
  ],
  "recency_preference": 0.5,
  "methodology_interest": 0.5
}

Return ONLY valid JSON without markdown formatting, explanation, or any other text.`))

var refinePromptTmpl = template.Must(template.New("refine").Parse(`You are an expert research assistant helping with a literature review search.

RESEARCH FOCUS:
Title: {{.Title}}
Abstract: {{.Abstract}}

FOCUS AREA FOR THIS SEARCH:
{{.Focus}}

PREVIOUS SEARCH QUERY:
{{.Query}}

PAPERS ALREADY FOUND ({{.Total}} total):
{{.Found}}
ITERATION: {{.Iteration}} (higher iterations should be more exploratory and divergent from the initial query)

TASK:
Create an improved search query that will surface additional relevant papers in the focus area. The new query should use different or more specific terms based on what has been found so far, address gaps in the current results, and be formulated for academic search engines. Do not exceed 200 characters.

Return just the search query text with no additional explanation, formatting, or quotes.`))

var relevancePromptTmpl = template.Must(template.New("relevance").Parse(`Assess the relevance of the CANDIDATE PAPER to the USER'S RESEARCH.

USER'S RESEARCH:
Title: {{.UserTitle}}
Abstract: {{.UserAbstract}}

CANDIDATE PAPER:
Title: {{.PaperTitle}}
Abstract: {{.PaperAbstract}}

Evaluate relevance across these dimensions, each scored 0.0 (not relevant) to 1.0 (extremely relevant):
1. topical_relevance: how closely the subject matter matches
2. methodological_relevance: similarity in approaches or techniques
3. contribution_relevance: how the findings might inform the user's work
4. recency_relevance: whether it represents current thinking

Also provide an overall relevance score and your confidence in the assessment.

Return your evaluation as JSON:
{"overall_relevance": 0.0, "confidence": 0.0, "aspects": {"topical_relevance": 0.0, "methodological_relevance": 0.0, "contribution_relevance": 0.0, "recency_relevance": 0.0}}

Return ONLY the JSON with no additional text.`))

var keywordsPromptTmpl = template.Must(template.New("keywords").Parse(`Extract the most relevant keywords from the following academic paper title and abstract. Focus on specific technical terms, methods, concepts, and domain vocabulary.

Title: {{.Title}}
Abstract: {{.Abstract}}

Provide exactly {{.N}} keywords as a comma-separated list, with no numbering or additional text. Each keyword should be 1-3 words.`))

var findingsPromptTmpl = template.Must(template.New("findings").Parse(`Extract the key findings and contributions from this academic paper.

Title: {{.Title}}

Abstract: {{.Abstract}}

Return 3-5 specific, concise statements that capture the main findings, contributions, or conclusions, each 1-2 sentences. One finding per line, with no numbering, bullets, or other formatting.`))

var clusterPromptTmpl = template.Must(template.New("cluster").Parse(`Cluster the following papers into {{.K}} groups based on topic similarity.

PAPERS:
{{.Papers}}
Group these papers into exactly {{.K}} clusters based on thematic similarity, methodology, or research focus. Every paper must be assigned to exactly one cluster.

Format your response as JSON, keyed by cluster number (0 to {{.KMinusOne}}), with 1-based paper numbers:
{"0": {"name": "Short cluster name", "papers": [1, 3]}, "1": {"name": "Another cluster name", "papers": [2]}}

Return ONLY the JSON with no additional text.`))

var insightsPromptTmpl = template.Must(template.New("insights").Parse(`Analyze the following papers and identify key insights relevant to the research questions.

RESEARCH QUESTIONS:
{{.Questions}}

PAPERS:
{{.Papers}}
Identify 4-6 key insights. Each insight must have one of these types:
- "methodology": novel or important methodological approaches
- "finding": key research finding or conclusion
- "gap": research gap or unanswered question
- "trend": trend or direction in the field
- "controversy": area of debate or disagreement

For each insight give a clear 2-3 sentence description, the 1-based paper numbers that support it, a confidence score between 0.1 and 1.0, and 3-5 keywords.

Format your response as a JSON array:
[{"type": "finding", "description": "...", "source_papers": ["1", "3"], "confidence": 0.8, "keywords": ["keyword1", "keyword2"]}]

Return ONLY the JSON with no additional text.`))

var reviewPromptTmpl = template.Must(template.New("review").Parse(`Write a comprehensive literature review section based on the following research papers.

CONTEXT:
The literature review is for a paper titled: "{{.Title}}"
Abstract: {{.Abstract}}

PAPERS TO INCLUDE:
{{.Papers}}
{{if .Insights}}KEY INSIGHTS:
{{.Insights}}{{end}}
INSTRUCTIONS:
1. Structure the review thematically, grouping related papers and findings
2. Critically analyze the literature, highlighting agreements, contradictions, and research gaps
3. Cite papers with LaTeX \cite{bibtexKey} using [first author's last name][year] keys (e.g. \cite{smith2020})
4. Maintain academic tone, with clear paragraphs and section divisions
5. Format the result as Markdown with appropriate headings

Return a complete, polished literature review section suitable for an academic paper.`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// summarizePapers renders a numbered paper list for prompt context: title,
// first author, year, truncated abstract, and up to three findings.
func summarizePapers(papers []*types.Paper, abstractLimit int, withFindings bool) string {
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
		b.WriteString("\n")
		if p.Abstract != "" {
			fmt.Fprintf(&b, "   Abstract: %s\n", truncate(p.Abstract, abstractLimit))
		}
		if withFindings && len(p.KeyFindings) > 0 {
			b.WriteString("   Key findings:\n")
			for _, f := range firstN(p.KeyFindings, 3) {
				fmt.Fprintf(&b, "   - %s\n", f)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func firstN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
