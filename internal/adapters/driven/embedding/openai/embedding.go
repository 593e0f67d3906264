// Package openai embeds text with the OpenAI embeddings API or any server
// that speaks it.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/ratelimit"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-small"
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 2

	// DefaultRequestLimit is the most inputs the API accepts per request.
	DefaultRequestLimit = 2048
)

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// shortenable models accept a dimensions parameter.
var shortenable = map[string]bool{
	"text-embedding-3-small": true,
	"text-embedding-3-large": true,
}

// Config configures the service. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3 vectors. Other models report
	// their native size.
	Dimensions int

	// MaxRetries is the client retry count on 429 and 5xx. Nil means
	// DefaultMaxRetries.
	MaxRetries *int

	// RequestsPerSecond throttles requests. Zero is unlimited.
	RequestsPerSecond float64

	// RequestLimit caps the inputs sent in one request.
	RequestLimit int
}

// EmbeddingService calls the embeddings endpoint, splitting large batches.
type EmbeddingService struct {
	client     openai.Client
	limiter    *ratelimit.Limiter
	model      string
	dimensions int
	perRequest int
}

// NewEmbeddingService creates the service. No request is made.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{
			Op:  "create openai embedding",
			Err: fmt.Errorf("%w: api key is required", domain.ErrEmbeddingUnavailable),
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestLimit <= 0 {
		cfg.RequestLimit = DefaultRequestLimit
	}
	retries := DefaultMaxRetries
	if cfg.MaxRetries != nil {
		retries = *cfg.MaxRetries
	}

	dimensions := modelDimensions[cfg.Model]
	if dimensions == 0 {
		dimensions = modelDimensions[DefaultModel]
	}
	if cfg.Dimensions > 0 {
		dimensions = cfg.Dimensions
	}

	return &EmbeddingService{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
			option.WithRequestTimeout(cfg.Timeout),
			option.WithMaxRetries(retries),
		),
		limiter:    ratelimit.New(ratelimit.Config{RequestsPerSecond: cfg.RequestsPerSecond}),
		model:      cfg.Model,
		dimensions: dimensions,
		perRequest: cfg.RequestLimit,
	}, nil
}

// Embed returns the vector of one text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in as few requests as the request limit allows
// and keeps input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.perRequest {
		end := min(start+s.perRequest, len(texts))
		part, err := s.request(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", start, end-1, err)
		}
		vectors = append(vectors, part...)
	}
	return vectors, nil
}

// request sends one embeddings call. The API may return data out of
// order, so vectors are placed by their reported index.
func (s *EmbeddingService) request(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(s.model),
	}
	if shortenable[s.model] {
		params.Dimensions = openai.Int(int64(s.dimensions))
	}

	resp, err := s.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, apiError(err)
	}

	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(texts) {
			return nil, fmt.Errorf("openai returned embedding index %d for %d inputs", data.Index, len(texts))
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		vectors[data.Index] = vector
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("openai returned no embedding for input %d", i)
		}
	}
	return vectors, nil
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the embedding model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the key and that the model exists, without embedding anything.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.Get(ctx, s.model); err != nil {
		return fmt.Errorf("look up model %s: %w", s.model, apiError(err))
	}
	return nil
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}

// apiError maps API failures onto the domain errors callers branch on.
func apiError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return fmt.Errorf("%w: openai error (status %d): %v", domain.ErrEmbeddingUnavailable, apiErr.StatusCode, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: openai error (status %d): %v", domain.ErrRateLimited, apiErr.StatusCode, err)
	default:
		return fmt.Errorf("openai error (status %d): %w", apiErr.StatusCode, err)
	}
}
