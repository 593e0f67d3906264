package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// The same service must be used for ingestion and querying: vectors from
// different models are not comparable, and the collection dimension is
// fixed when it is created.
//
// Implementations may include:
//   - Ollama (all-minilm, nomic-embed-text)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Built-in feature hashing (offline, deterministic)
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// It returns exactly one vector per input, in input order, and each
	// vector equals what Embed would return for the same text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	// This is determined by the model and must match the collection dimension.
	Dimensions() int

	// ModelName identifies the model. The embedding cache keys on it.
	ModelName() string

	// Ping checks the provider without embedding anything.
	Ping(ctx context.Context) error

	Close() error
}
