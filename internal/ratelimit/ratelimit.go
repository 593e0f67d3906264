// Package ratelimit throttles calls to upstream HTTP services.
//
// A Limiter combines a proactive token bucket with a reactive backoff taken
// from 429 responses and their Retry-After header. Wikipedia, DuckDuckGo and
// the OpenAI adapters share this type.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

const (
	// DefaultRequestsPerSecond is the sustained rate when none is configured.
	DefaultRequestsPerSecond = 1.0

	// DefaultBurst is the bucket size when none is configured.
	DefaultBurst = 1

	// DefaultBackoff is used for 429 responses without a usable Retry-After.
	DefaultBackoff = 30 * time.Second

	// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
	HeaderRetryAfter = "Retry-After"
)

// Config holds rate limiting configuration for one upstream.
type Config struct {
	// RequestsPerSecond is the sustained rate limit. Zero or negative disables throttling.
	RequestsPerSecond float64

	// Burst is the maximum burst size.
	Burst int
}

// Limiter rate limits requests to a single upstream.
type Limiter struct {
	mu      sync.Mutex
	bucket  *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// New creates a limiter. Missing values fall back to the defaults.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &Limiter{
		bucket: rate.NewLimiter(limit, burst),
		now:    time.Now,
	}
}

// Wait blocks until a request can be made. It honours any backoff recorded
// from a previous 429 before taking a token from the bucket.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if wait := retryAt.Sub(l.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.bucket.Wait(ctx)
}

// Check inspects a response. For 429 it records a backoff and returns an
// error wrapping domain.ErrRateLimited; otherwise it returns nil.
func (l *Limiter) Check(resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	backoff := parseRetryAfter(resp.Header.Get(HeaderRetryAfter), l.now())
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	l.mu.Lock()
	l.retryAt = l.now().Add(backoff)
	l.mu.Unlock()

	return fmt.Errorf("%w: retry after %s", domain.ErrRateLimited, backoff)
}

// RetryAt returns the end of the current backoff period, if any.
func (l *Limiter) RetryAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retryAt
}

func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return at.Sub(now)
	}
	return 0
}
