package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

func noRetries() *int {
	n := 0
	return &n
}

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "message": {"role": "assistant", "content": "Athens, 1896."},
    "finish_reason": "stop"
  }],
  "usage": {"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8}
}`

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestLLMService_Generate(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionJSON))
	}))
	defer srv.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: noRetries()})
	require.NoError(t, err)

	out, err := s.Generate(context.Background(), "Where?", driven.GenerateOptions{MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "Athens, 1896.", out)

	assert.Equal(t, "gpt-4o-mini", raw["model"])
	assert.Contains(t, raw, "temperature", "temperature 0 is sent explicitly")
	assert.Equal(t, float64(0), raw["temperature"])
	assert.Equal(t, float64(64), raw["max_tokens"])
}

func TestLLMService_GenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "sk-bad", BaseURL: srv.URL, MaxRetries: noRetries()})
	require.NoError(t, err)

	_, err = s.Generate(context.Background(), "x", driven.GenerateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai error (status 401)")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestLLMService_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/models/gpt-4o-mini":
			_, _ = w.Write([]byte(`{"id":"gpt-4o-mini","object":"model","created":1700000000,"owned_by":"openai"}`))
		case "/chat/completions":
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"no such model","type":"invalid_request_error"}}`))
		}
	}))
	defer srv.Close()

	t.Run("known model", func(t *testing.T) {
		s, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: noRetries()})
		require.NoError(t, err)

		assert.NoError(t, s.Ping(context.Background()))
	})

	t.Run("unknown model", func(t *testing.T) {
		s, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-9", MaxRetries: noRetries()})
		require.NoError(t, err)

		err = s.Ping(context.Background())
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
		assert.Contains(t, err.Error(), "gpt-9")
	})

	t.Run("rate limited generation", func(t *testing.T) {
		s, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: noRetries()})
		require.NoError(t, err)

		_, err = s.Generate(context.Background(), "x", driven.GenerateOptions{})
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})
}
