package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown backend, provider or MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrUnsupportedLanguage indicates a language code outside it/en.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrDimensionMismatch indicates an embedding size differs from the collection's.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrDistanceMismatch indicates an existing collection uses another metric.
	ErrDistanceMismatch = errors.New("distance metric mismatch")

	// ErrCollectionUnhealthy indicates the collection status is not green.
	ErrCollectionUnhealthy = errors.New("collection unhealthy")

	// ErrEmptyDocument indicates a document has no content to chunk.
	ErrEmptyDocument = errors.New("empty document")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrRateLimited indicates an upstream API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ConfigurationError reports a fatal setup problem: a missing or unhealthy
// collection, a vector dimension mismatch, an unsupported language or an
// invalid setting. It is never retried.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IngestionError reports a failure on a single source record or file.
// The ingestion run continues over the remaining items.
type IngestionError struct {
	Item string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion error: %s: %v", e.Item, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// EmbeddingError reports a failed embedding call. No chunk of the
// affected document is indexed.
type EmbeddingError struct {
	Item string
	Err  error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding error: %s: %v", e.Item, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// RetrievalError reports a vector store failure during a query.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval error: %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// WebSearchError reports a failed or timed-out web search.
// It is logged and degraded to an empty web context.
type WebSearchError struct {
	Query string
	Err   error
}

func (e *WebSearchError) Error() string {
	return fmt.Sprintf("web search error: %q: %v", e.Query, e.Err)
}

func (e *WebSearchError) Unwrap() error { return e.Err }

// GenerationError reports a failure of the text-generation service.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation error: %s: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
