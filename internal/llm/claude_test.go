// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreview/internal/cache"
	"github.com/pdiddy/litreview/pkg/types"
)

// withClaudeServer points the package at an httptest server for one test.
func withClaudeServer(t *testing.T, handler http.Handler) {
	t.Helper()
	ts := httptest.NewServer(handler)
	old := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() {
		claudeAPIURL = old
		ts.Close()
	})
}

func newTestClaude(store *cache.Store) *Claude {
	return NewClaude(types.LLMConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second},
		Model:      "test-model",
		APIKey:     "test-key",
	}, store)
}

func TestClaudeComplete(t *testing.T) {
	var gotModel, gotKey, gotVersion string
	var gotMaxTokens int
	withClaudeServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")

		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model
		gotMaxTokens = req.MaxTokens

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "thinking", "text": "hmm"},
				{"type": "text", "text": "the answer"},
			},
		})
	}))

	c := newTestClaude(nil)
	got, err := c.Complete(context.Background(), "a prompt", 256, 0.1)
	require.NoError(t, err)

	// The first text block wins; non-text blocks are skipped.
	assert.Equal(t, "the answer", got)
	assert.Equal(t, "test-model", gotModel)
	assert.Equal(t, 256, gotMaxTokens)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "2023-06-01", gotVersion)
}

func TestClaudeCompleteAPIError(t *testing.T) {
	withClaudeServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "bad request"}`))
	}))

	c := newTestClaude(nil)
	_, err := c.Complete(context.Background(), "a prompt", 256, 0.1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestClaudeCompleteNoTextContent(t *testing.T) {
	withClaudeServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"content": []map[string]any{}})
	}))

	c := newTestClaude(nil)
	_, err := c.Complete(context.Background(), "a prompt", 256, 0.1)
	assert.Error(t, err)
}

func TestClaudeCompleteUsesCache(t *testing.T) {
	var calls int32
	withClaudeServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "cached answer"}},
		})
	}))

	store, err := cache.Open(t.TempDir(), time.Hour)
	require.NoError(t, err)
	defer store.Close()

	c := newTestClaude(store)
	first, err := c.Complete(context.Background(), "a prompt", 256, 0.1)
	require.NoError(t, err)
	second, err := c.Complete(context.Background(), "a prompt", 256, 0.1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Different sampling parameters miss the cache.
	_, err = c.Complete(context.Background(), "a prompt", 512, 0.1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
