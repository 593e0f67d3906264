package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrUnsupportedLanguage", ErrUnsupportedLanguage},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrDistanceMismatch", ErrDistanceMismatch},
		{"ErrCollectionUnhealthy", ErrCollectionUnhealthy},
		{"ErrEmptyDocument", ErrEmptyDocument},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrVectorIndexUnavailable", ErrVectorIndexUnavailable},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestTypedErrors_UnwrapToCause(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name   string
		err    error
		prefix string
	}{
		{"configuration", &ConfigurationError{Op: "validate collection", Err: cause}, "configuration error"},
		{"ingestion", &IngestionError{Item: "a.json", Err: cause}, "ingestion error"},
		{"embedding", &EmbeddingError{Item: "doc", Err: cause}, "embedding error"},
		{"retrieval", &RetrievalError{Op: "query", Err: cause}, "retrieval error"},
		{"web search", &WebSearchError{Query: "q", Err: cause}, "web search error"},
		{"generation", &GenerationError{Model: "llama3.1", Err: cause}, "generation error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, cause)
			assert.Contains(t, tt.err.Error(), tt.prefix)
			assert.Contains(t, tt.err.Error(), "boom")
		})
	}
}

func TestConfigurationError_CatchableThroughWrapping(t *testing.T) {
	err := fmt.Errorf("retrieve: %w", &ConfigurationError{
		Op:  "validate collection wikipedia",
		Err: fmt.Errorf("%w: status red", ErrCollectionUnhealthy),
	})

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "validate collection wikipedia", cfgErr.Op)
	assert.ErrorIs(t, err, ErrCollectionUnhealthy)
	assert.True(t, IsConfigurationError(err))
	assert.False(t, IsConfigurationError(errors.New("plain")))
}

func TestWebSearchError_WrapsDeadline(t *testing.T) {
	err := &WebSearchError{Query: "olympics", Err: context.DeadlineExceeded}

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), `"olympics"`)
}
