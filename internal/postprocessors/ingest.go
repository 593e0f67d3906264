package postprocessors

import (
	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/postprocessors/chunker"
	"github.com/custodia-labs/wikirag/internal/postprocessors/embedder"
)

// NewIngestPipeline returns the split-then-embed pipeline used by
// ingestion. Chunks that do not match dimension are rejected before they
// reach the index; zero skips that check.
func NewIngestPipeline(
	embedding driven.EmbeddingService, chunking domain.ChunkSettings, batchSize, dimension int,
) (*Pipeline, error) {
	split, err := chunker.New(chunker.WithChunkSize(chunking.Size), chunker.WithOverlap(chunking.Overlap))
	if err != nil {
		return nil, err
	}

	var opts []embedder.Option
	if batchSize > 0 {
		opts = append(opts, embedder.WithBatchSize(batchSize))
	}
	embed, err := embedder.New(embedding, opts...)
	if err != nil {
		return nil, err
	}

	return NewPipeline(split, embed).RequireDimension(dimension), nil
}
