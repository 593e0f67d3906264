package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

var _ driven.ProviderProbe = (*Probe)(nil)

const (
	// DefaultProbeTimeout bounds a single provider check.
	DefaultProbeTimeout = 5 * time.Second

	probeText = "Giochi olimpici"
)

// Probe builds a short-lived adapter from the settings under test and
// exercises it once.
type Probe struct {
	timeout time.Duration
}

// NewProbe returns a probe with the given per-check timeout.
// A non-positive timeout uses DefaultProbeTimeout.
func NewProbe(timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Probe{timeout: timeout}
}

// ProbeEmbedding pings the embedding provider and embeds a sample text.
func (p *Probe) ProbeEmbedding(ctx context.Context, cfg domain.EmbeddingSettings) (int, error) {
	if cfg.Provider == domain.AIProviderAnthropic {
		return 0, fmt.Errorf("%w: anthropic has no embedding endpoint", domain.ErrEmbeddingUnavailable)
	}
	if !cfg.IsConfigured() {
		return 0, nil
	}

	// A cache hit would answer without the provider, and the cache file
	// may be locked by a running command.
	cfg.Cache = false
	svc, err := CreateEmbeddingService(&cfg)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return 0, fmt.Errorf("%w: %s unreachable: %w", domain.ErrEmbeddingUnavailable, cfg.Provider, err)
	}
	vector, err := svc.Embed(ctx, probeText)
	if err != nil {
		return 0, fmt.Errorf("%w: embed sample with %s: %w", domain.ErrEmbeddingUnavailable, svc.ModelName(), err)
	}
	return len(vector), nil
}

// ProbeLLM pings the generation provider.
func (p *Probe) ProbeLLM(ctx context.Context, cfg domain.LLMSettings) error {
	if !cfg.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(&cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %s unreachable: %w", domain.ErrLLMUnavailable, cfg.Provider, err)
	}
	return nil
}
