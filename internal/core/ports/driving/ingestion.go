package driving

import (
	"context"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// IngestionService runs the offline indexing stages.
// Each stage reports per-item failures in its summary instead of aborting;
// only configuration problems end a stage early.
type IngestionService interface {
	// Acquire fetches and cleans the referenced documents and writes one
	// document record per document into outDir.
	Acquire(ctx context.Context, refs []string, outDir string) (*domain.IngestionSummary, error)

	// Chunk splits and embeds the document records in inDir and writes one
	// chunk record per chunk into outDir.
	Chunk(ctx context.Context, inDir, outDir string) (*domain.IngestionSummary, error)

	// Load upserts the chunk records in inDir into the configured collection.
	Load(ctx context.Context, inDir string) (*domain.IngestionSummary, error)

	// Ingest chunks, embeds and upserts documents without intermediate records.
	Ingest(ctx context.Context, docs []domain.Document) (*domain.IngestionSummary, error)

	// Run acquires the references and ingests the result.
	Run(ctx context.Context, refs []string) (*domain.IngestionSummary, error)

	// SetProgress registers a callback invoked after each item of a stage.
	SetProgress(fn ProgressFunc)
}

// ProgressFunc receives the stage name, the number of finished items and
// the stage total.
type ProgressFunc func(stage string, done, total int)

// CollectionService manages the vector collection the corpus lives in.
type CollectionService interface {
	// Ensure creates the collection if missing and checks an existing one
	// matches the configured dimension and distance.
	Ensure(ctx context.Context) (*domain.Collection, error)

	// Validate checks the collection exists, is healthy and matches the
	// embedding dimension.
	Validate(ctx context.Context) (*domain.Collection, error)

	// Status describes the collection.
	Status(ctx context.Context) (*domain.Collection, error)
}
