package driven

import (
	"context"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// VectorIndex stores chunk vectors in named collections and answers
// similarity queries against them.
type VectorIndex interface {
	// Collection describes a collection.
	// Returns domain.ErrNotFound if it does not exist.
	Collection(ctx context.Context, name string) (*domain.Collection, error)

	// CreateCollection creates an empty collection with a fixed vector size
	// and distance metric.
	CreateCollection(ctx context.Context, name string, dimension int, distance domain.Distance) error

	// Upsert inserts chunks, replacing any existing point with the same ID.
	// Repeating an upsert leaves the collection unchanged.
	Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error

	// Query returns at most topK chunks whose score is at least threshold,
	// ordered by descending score with ties broken by insertion order.
	// An empty result is not an error.
	Query(ctx context.Context, collection string, vector []float32, topK int, threshold float64) ([]domain.ScoredChunk, error)

	// Count returns the number of points in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Close releases resources.
	Close() error
}
