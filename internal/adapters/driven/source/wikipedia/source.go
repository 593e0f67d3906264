// Package wikipedia provides a DocumentSource that fetches plain-text page
// extracts from the MediaWiki API.
//
// A reference is either a page URL (https://it.wikipedia.org/wiki/Title) or
// a "wikipedia:Title" reference. The language of a URL reference comes from
// its host; bare titles use the language passed to Fetch.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/ratelimit"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// Default configuration values.
const (
	DefaultUserAgent     = "WikiRag"
	DefaultTimeout       = 30 * time.Second
	DefaultRatePerSecond = 5.0

	// TitlePrefix marks a bare-title reference.
	TitlePrefix = "wikipedia:"

	hostSuffix = ".wikipedia.org"
)

// Config holds configuration for the Wikipedia source.
type Config struct {
	// UserAgent identifies the client to Wikimedia (default: WikiRag).
	UserAgent string

	// Timeout is the HTTP client timeout (default: 30s).
	Timeout time.Duration

	// RatePerSecond throttles API requests (default: 5).
	RatePerSecond float64

	// Endpoint overrides the API URL; "{lang}" is replaced by the language.
	// Defaults to https://{lang}.wikipedia.org/w/api.php.
	Endpoint string
}

// Source fetches Wikipedia pages.
type Source struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
	endpoint  string
}

type queryResponse struct {
	Query struct {
		Pages []page `json:"pages"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

type page struct {
	PageID  int    `json:"pageid"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
	FullURL string `json:"fullurl"`
	Missing bool   `json:"missing"`
	Invalid bool   `json:"invalid"`
}

// New creates a Wikipedia source.
func New(cfg Config) *Source {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RatePerSecond == 0 {
		cfg.RatePerSecond = DefaultRatePerSecond
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://{lang}" + hostSuffix + "/w/api.php"
	}

	return &Source{
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   ratelimit.New(ratelimit.Config{RequestsPerSecond: cfg.RatePerSecond}),
		userAgent: cfg.UserAgent,
		endpoint:  cfg.Endpoint,
	}
}

// Name returns the source name.
func (s *Source) Name() string {
	return "wikipedia"
}

// Accepts reports whether ref is a Wikipedia URL or a prefixed title.
func (s *Source) Accepts(ref string) bool {
	if strings.HasPrefix(ref, TitlePrefix) {
		return true
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && strings.HasSuffix(u.Hostname(), hostSuffix)
}

// ParseRef extracts the page title and language from a reference.
// The URL host decides the language when it names a supported one;
// otherwise fallback is used.
func ParseRef(ref string, fallback domain.Language) (title string, lang domain.Language, err error) {
	lang = fallback
	if rest, ok := strings.CutPrefix(ref, TitlePrefix); ok {
		title = strings.TrimSpace(rest)
	} else {
		u, perr := url.Parse(ref)
		if perr != nil {
			return "", "", fmt.Errorf("%w: %s", domain.ErrInvalidInput, ref)
		}
		segments := strings.Split(strings.TrimRight(u.Path, "/"), "/")
		last := segments[len(segments)-1]
		if title, perr = url.PathUnescape(last); perr != nil {
			title = last
		}
		if code, _, ok := strings.Cut(u.Hostname(), "."); ok {
			if l, perr := domain.ParseLanguage(code); perr == nil {
				lang = l
			}
		}
	}

	title = strings.ReplaceAll(title, "_", " ")
	if title == "" {
		return "", "", fmt.Errorf("%w: no page title in %q", domain.ErrInvalidInput, ref)
	}
	if !lang.IsValid() {
		return "", "", &domain.ConfigurationError{
			Op:  "wikipedia reference " + ref,
			Err: fmt.Errorf("%w: %q", domain.ErrUnsupportedLanguage, lang),
		}
	}
	return title, lang, nil
}

// Fetch downloads the plain-text extract of one page.
func (s *Source) Fetch(ctx context.Context, ref string, lang domain.Language) ([]domain.RawDocument, error) {
	title, lang, err := ParseRef(ref, lang)
	if err != nil {
		return nil, err
	}

	p, err := s.query(ctx, title, lang)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", title, err)
	}

	return []domain.RawDocument{{
		URI:      p.FullURL,
		MIMEType: "text/plain",
		Content:  []byte(p.Extract),
		Language: lang,
		Metadata: map[string]any{
			"title":   p.Title,
			"page_id": p.PageID,
			"source":  s.Name(),
		},
	}}, nil
}

func (s *Source) query(ctx context.Context, title string, lang domain.Language) (*page, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts|info")
	params.Set("inprop", "url")
	params.Set("explaintext", "1")
	params.Set("redirects", "1")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("titles", title)

	endpoint := strings.ReplaceAll(s.endpoint, "{lang}", string(lang))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if err := s.limiter.Check(resp); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("wikipedia error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if qr.Error != nil {
		return nil, fmt.Errorf("wikipedia error: %s: %s", qr.Error.Code, qr.Error.Info)
	}
	if len(qr.Query.Pages) == 0 {
		return nil, fmt.Errorf("page %q: %w", title, domain.ErrNotFound)
	}

	p := qr.Query.Pages[0]
	if p.Missing || p.Invalid {
		return nil, fmt.Errorf("page %q: %w", title, domain.ErrNotFound)
	}
	if p.FullURL == "" {
		p.FullURL = "https://" + string(lang) + hostSuffix + "/wiki/" + url.PathEscape(strings.ReplaceAll(p.Title, " ", "_"))
	}
	return &p, nil
}
