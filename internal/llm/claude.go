// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm layers the pipeline's structured prompt operations (plan
// generation, query refinement, relevance scoring, clustering, insight
// extraction, review synthesis) over a single text-completion primitive.
// Returned text is untrusted: every operation parses defensively and
// resolves malformed output to a documented fallback.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/litreview/internal/cache"
	"github.com/pdiddy/litreview/internal/httputil"
	"github.com/pdiddy/litreview/pkg/types"
)

// Completer is the generation collaborator's single primitive.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// claudeAPIURL is the Claude Messages API endpoint. Package-level var for
// test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// Claude implements Completer over the Claude Messages API, with
// cache-through on the llm namespace. Cache may be nil.
type Claude struct {
	APIKey string
	Model  string
	Client *http.Client
	Cache  *cache.Store
}

// NewClaude builds a Claude completer from config.
func NewClaude(cfg types.LLMConfig, store *cache.Store) *Claude {
	return &Claude{
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
		Client: &http.Client{Timeout: cfg.Timeout},
		Cache:  store,
	}
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends one prompt and returns the text of the first text block.
// Identical prompts with identical sampling parameters hit the cache.
func (c *Claude) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	cacheKey := fmt.Sprintf("complete|model=%s|max=%d|temp=%.3f|%s", c.Model, maxTokens, temperature, prompt)
	if cached, ok := c.Cache.Get(cache.NamespaceLLM, cacheKey); ok {
		return string(cached), nil
	}

	reqBody := claudeRequest{
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    []claudeMessage{{Role: "user", Content: prompt}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("calling generation API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generation API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding generation response: %w", err)
	}

	for _, block := range cResp.Content {
		if block.Type != "text" {
			continue
		}
		c.Cache.Put(cache.NamespaceLLM, cacheKey, []byte(block.Text))
		return block.Text, nil
	}

	return "", fmt.Errorf("no text content in generation response")
}
