// Package duckduckgo provides a driven.WebSearcher backed by the DuckDuckGo
// Instant Answer API.
package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/ratelimit"
)

// Ensure Searcher implements the interface.
var _ driven.WebSearcher = (*Searcher)(nil)

// Default configuration values.
const (
	DefaultBaseURL       = "https://api.duckduckgo.com/"
	DefaultRegion        = "it-it"
	DefaultTimeout       = 10 * time.Second
	DefaultMaxTopics     = 3
	DefaultUserAgent     = "WikiRag"
	DefaultRatePerSecond = 1.0
)

// Config holds configuration for the DuckDuckGo searcher.
type Config struct {
	// BaseURL is the API endpoint (default: https://api.duckduckgo.com/).
	BaseURL string

	// Region is the kl parameter, e.g. "it-it" or "us-en".
	Region string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout is the HTTP client timeout (default: 10s).
	Timeout time.Duration

	// MaxTopics caps the related-topic snippets appended to the abstract.
	MaxTopics int

	// RatePerSecond throttles requests (default: 1).
	RatePerSecond float64
}

// Searcher queries DuckDuckGo.
type Searcher struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	baseURL   string
	region    string
	userAgent string
	maxTopics int
}

// instantAnswer is the subset of the API response used for snippets.
type instantAnswer struct {
	Heading       string  `json:"Heading"`
	AbstractText  string  `json:"AbstractText"`
	Answer        string  `json:"Answer"`
	Definition    string  `json:"Definition"`
	RelatedTopics []topic `json:"RelatedTopics"`
}

// topic is either a single result or a named group of results.
type topic struct {
	Text   string  `json:"Text"`
	Name   string  `json:"Name"`
	Topics []topic `json:"Topics"`
}

// New creates a DuckDuckGo searcher.
func New(cfg Config) *Searcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTopics <= 0 {
		cfg.MaxTopics = DefaultMaxTopics
	}
	if cfg.RatePerSecond == 0 {
		cfg.RatePerSecond = DefaultRatePerSecond
	}

	return &Searcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   ratelimit.New(ratelimit.Config{RequestsPerSecond: cfg.RatePerSecond}),
		baseURL:   cfg.BaseURL,
		region:    cfg.Region,
		userAgent: cfg.UserAgent,
		maxTopics: cfg.MaxTopics,
	}
}

// Name returns the provider name.
func (s *Searcher) Name() string {
	return "duckduckgo"
}

// Search returns the instant-answer text for query. Empty means DuckDuckGo
// had nothing to say.
func (s *Searcher) Search(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("no_redirect", "1")
	params.Set("skip_disambig", "1")
	params.Set("kl", s.region)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if err := s.limiter.Check(resp); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("duckduckgo error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return s.snippet(answer), nil
}

func (s *Searcher) snippet(a instantAnswer) string {
	var parts []string
	for _, text := range []string{a.AbstractText, a.Answer, a.Definition} {
		if t := strings.TrimSpace(text); t != "" {
			parts = append(parts, t)
		}
	}

	topics := 0
	var walk func([]topic)
	walk = func(ts []topic) {
		for _, t := range ts {
			if topics >= s.maxTopics {
				return
			}
			if len(t.Topics) > 0 {
				walk(t.Topics)
				continue
			}
			if text := strings.TrimSpace(t.Text); text != "" {
				parts = append(parts, text)
				topics++
			}
		}
	}
	walk(a.RelatedTopics)

	return strings.Join(parts, " ")
}
