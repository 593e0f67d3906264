// Package ai builds the embedding and generation adapters named in the
// settings, and probes them for the settings checks.
package ai

import (
	"fmt"

	embedcache "github.com/custodia-labs/wikirag/internal/adapters/driven/embedding/cache"
	hashembed "github.com/custodia-labs/wikirag/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/wikirag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/wikirag/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/wikirag/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/wikirag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/wikirag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

type (
	embeddingBuilder func(domain.EmbeddingSettings) (driven.EmbeddingService, error)
	llmBuilder       func(domain.LLMSettings) (driven.LLMService, error)
)

var embedders = map[domain.AIProvider]embeddingBuilder{
	domain.AIProviderOllama: func(s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		dims := s.EffectiveDimensions()
		if dims == 0 {
			dims = ollamaembed.DefaultDimensions
		}
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{BaseURL: s.BaseURL, Model: s.Model, Dimensions: dims}), nil
	},
	domain.AIProviderOpenAI: func(s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: s.EffectiveDimensions(),
		})
	},
	domain.AIProviderHash: func(s domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return hashembed.NewEmbeddingService(s.EffectiveDimensions()), nil
	},
}

var generators = map[domain.AIProvider]llmBuilder{
	domain.AIProviderOllama: func(s domain.LLMSettings) (driven.LLMService, error) {
		return ollamallm.NewLLMService(ollamallm.LLMConfig{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
	domain.AIProviderOpenAI: func(s domain.LLMSettings) (driven.LLMService, error) {
		return openaillm.NewLLMService(openaillm.LLMConfig{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
	},
	domain.AIProviderAnthropic: func(s domain.LLMSettings) (driven.LLMService, error) {
		return anthropicllm.NewLLMService(anthropicllm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
	},
}

// CreateEmbeddingService builds the configured embedder, behind the
// persistent cache when settings.Cache and a cache path are set. It
// returns nil, nil when the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider == domain.AIProviderAnthropic {
		return nil, &domain.ConfigurationError{
			Op: "create embedding service",
			Err: fmt.Errorf("%w: anthropic does not support embeddings, use ollama, openai or hash",
				domain.ErrEmbeddingUnavailable),
		}
	}
	if !settings.IsConfigured() {
		return nil, nil
	}

	build, ok := embedders[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
	svc, err := build(*settings)
	if err != nil {
		return nil, err
	}
	if !settings.Cache || settings.CachePath == "" {
		return svc, nil
	}

	cached, err := embedcache.Open(settings.CachePath, svc)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	return cached, nil
}

// CreateLLMService builds the configured generator. It returns nil, nil
// when the provider is not configured, which leaves ask without answers.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	build, ok := generators[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
	return build(*settings)
}
