package driven

import "context"

// LLMService produces answers from a fully rendered prompt.
//
// Implementations may include:
//   - Ollama (local models)
//   - OpenAI (or any OpenAI-compatible server)
//   - Anthropic (Claude)
type LLMService interface {
	// Generate returns the model output for prompt, unmodified.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	ModelName() string

	// Ping checks that the provider answers and knows the model, without
	// generating anything.
	Ping(ctx context.Context) error

	Close() error
}

// GenerateOptions are filled from domain.GenerationConfig.
type GenerateOptions struct {
	// MaxTokens caps the answer length. Zero leaves it to the provider.
	MaxTokens int

	// Temperature controls randomness. Adapters always send it, including 0.
	Temperature float64

	// ContextWindow is the model input budget in tokens (0 = provider default).
	ContextWindow int

	StopWords []string
}
