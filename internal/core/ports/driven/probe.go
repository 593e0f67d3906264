package driven

import (
	"context"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// ProviderProbe checks model provider settings against the live provider
// before they are relied on. Settings that leave a provider unconfigured
// pass without any call.
type ProviderProbe interface {
	// ProbeEmbedding embeds a sample text and returns the vector length,
	// or 0 when the provider is not configured.
	ProbeEmbedding(ctx context.Context, cfg domain.EmbeddingSettings) (int, error)

	// ProbeLLM checks that the generation provider answers.
	ProbeLLM(ctx context.Context, cfg domain.LLMSettings) error
}
