// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries the Semantic Scholar Graph API for candidate
// papers and their outbound references. Responses are cached by exact query
// text; results lacking any usable identifier are dropped here, on the
// caller side of the collaborator boundary.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/litreview/internal/cache"
	"github.com/pdiddy/litreview/internal/httputil"
	"github.com/pdiddy/litreview/pkg/types"
)

// apiBase is the Semantic Scholar Graph API root. Declared as a var so
// tests can substitute an httptest server.
var apiBase = "https://api.semanticscholar.org/graph/v1"

const paperFields = "title,abstract,authors,venue,year,citationCount,url,externalIds"

// YearRange restricts results to a publication year window. A zero bound
// leaves that side open.
type YearRange struct {
	From int
	To   int
}

// IsZero reports whether the range is unbounded on both sides.
func (r YearRange) IsZero() bool { return r.From == 0 && r.To == 0 }

// String renders the range in the API's "from-to" filter syntax.
func (r YearRange) String() string {
	switch {
	case r.From != 0 && r.To != 0:
		return fmt.Sprintf("%d-%d", r.From, r.To)
	case r.From != 0:
		return fmt.Sprintf("%d-", r.From)
	case r.To != 0:
		return fmt.Sprintf("-%d", r.To)
	default:
		return ""
	}
}

// Client talks to the search collaborator. Cache may be nil to disable
// response caching.
type Client struct {
	HTTP   *http.Client
	APIKey string
	Cache  *cache.Store

	cfg types.SearchConfig
}

// NewClient builds a search client from config. A nil http.Client falls
// back to a default client carrying the configured timeout.
func NewClient(cfg types.SearchConfig, store *cache.Store) *Client {
	return &Client{
		HTTP:   &http.Client{Timeout: cfg.Timeout},
		APIKey: cfg.APIKey,
		Cache:  store,
		cfg:    cfg,
	}
}

// Search returns up to limit papers matching the query, optionally
// restricted to a publication year range.
func (c *Client) Search(ctx context.Context, query string, limit int, years YearRange) ([]types.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = c.cfg.MaxResults
	}

	params := url.Values{
		"query":  {query},
		"limit":  {fmt.Sprintf("%d", limit)},
		"fields": {paperFields},
	}
	if !years.IsZero() {
		params.Set("year", years.String())
	}

	cacheKey := fmt.Sprintf("search|%s|limit=%d|years=%s", query, limit, years)
	body, err := c.fetch(ctx, apiBase+"/paper/search?"+params.Encode(), cacheKey)
	if err != nil {
		return nil, err
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	papers := make([]types.Paper, 0, len(sr.Data))
	for _, item := range sr.Data {
		if p, ok := item.toPaper(); ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// References returns up to limit papers cited by the given paper.
func (c *Client) References(ctx context.Context, paperID string, limit int) ([]types.Paper, error) {
	if paperID == "" {
		return nil, fmt.Errorf("empty paper ID")
	}
	if limit <= 0 {
		limit = c.cfg.ReferenceLimit
	}

	params := url.Values{
		"limit":  {fmt.Sprintf("%d", limit)},
		"fields": {paperFields},
	}

	cacheKey := fmt.Sprintf("references|%s|limit=%d", paperID, limit)
	reqURL := apiBase + "/paper/" + url.PathEscape(paperID) + "/references?" + params.Encode()
	body, err := c.fetch(ctx, reqURL, cacheKey)
	if err != nil {
		return nil, err
	}

	var rr referencesResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, fmt.Errorf("parsing references response: %w", err)
	}

	papers := make([]types.Paper, 0, len(rr.Data))
	for _, item := range rr.Data {
		if p, ok := item.CitedPaper.toPaper(); ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// fetch runs one GET against the API with cache-through on the search
// namespace. Only 200 responses are cached.
func (c *Client) fetch(ctx context.Context, reqURL, cacheKey string) ([]byte, error) {
	if body, ok := c.Cache.Get(cache.NamespaceSearch, cacheKey); ok {
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: c.cfg.Timeout}
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("search API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}

	c.Cache.Put(cache.NamespaceSearch, cacheKey, body)
	return body, nil
}

// Semantic Scholar API JSON structures.

type searchResponse struct {
	Total  int        `json:"total"`
	Offset int        `json:"offset"`
	Data   []apiPaper `json:"data"`
}

type referencesResponse struct {
	Data []struct {
		CitedPaper apiPaper `json:"citedPaper"`
	} `json:"data"`
}

type apiPaper struct {
	PaperID       string      `json:"paperId"`
	Title         string      `json:"title"`
	Abstract      string      `json:"abstract"`
	Venue         string      `json:"venue"`
	Year          int         `json:"year"`
	CitationCount int         `json:"citationCount"`
	URL           string      `json:"url"`
	Authors       []apiAuthor `json:"authors"`
	ExternalIDs   externalIDs `json:"externalIds"`
}

type apiAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type externalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
	MAG   string `json:"MAG"`
}

// toPaper converts an API record. It reports ok=false when the record
// carries no usable identifier at all; such records are dropped.
func (a apiPaper) toPaper() (types.Paper, bool) {
	id := a.PaperID
	if id == "" {
		id = firstNonEmpty(a.ExternalIDs.DOI, a.ExternalIDs.ArXiv, a.ExternalIDs.MAG)
	}
	if id == "" {
		return types.Paper{}, false
	}

	p := types.Paper{
		ID:            id,
		Title:         a.Title,
		Abstract:      a.Abstract,
		Venue:         a.Venue,
		Year:          a.Year,
		CitationCount: a.CitationCount,
		URL:           a.URL,
	}
	for _, au := range a.Authors {
		p.Authors = append(p.Authors, types.Author{Name: au.Name, ID: au.AuthorID})
	}
	return p, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
