package driven

import (
	"context"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// PostProcessor is one step between a normalised document and the chunks
// that reach the vector index. The first step of a pipeline gets nil
// chunks and creates them; later steps, such as embedding, fill them in.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns a document into chunks ready for upsert:
// split, embedded and checked against the collection dimension.
// A domain.ConfigurationError from Process aborts the ingestion stage;
// any other error only fails the document.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
