// Package embedder provides the post-processor that attaches vectors to chunks.
package embedder

import (
	"context"
	"fmt"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

// DefaultBatchSize is the number of chunk texts sent per embedding call.
const DefaultBatchSize = 32

// Verify interface compliance.
var _ driven.PostProcessor = (*Processor)(nil)

// Option configures the embedding processor.
type Option func(*Processor)

// WithBatchSize sets how many chunks are embedded per call.
func WithBatchSize(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// Processor fills chunk vectors using an embedding service.
// All chunks of a document are embedded or none are: any failure returns
// an error and no chunks.
type Processor struct {
	service   driven.EmbeddingService
	batchSize int
}

// New creates an embedding processor.
func New(service driven.EmbeddingService, opts ...Option) (*Processor, error) {
	if service == nil {
		return nil, &domain.ConfigurationError{Op: "create embedder", Err: domain.ErrEmbeddingUnavailable}
	}
	p := &Processor{service: service, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "embedder"
}

// Process embeds the chunk contents and returns copies carrying the vectors.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	dims := p.service.Dimensions()
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)

	for start := 0; start < len(out); start += p.batchSize {
		end := min(start+p.batchSize, len(out))
		texts := make([]string, 0, end-start)
		for _, c := range out[start:end] {
			texts = append(texts, c.Payload.Content)
		}

		vectors, err := p.service.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, &domain.EmbeddingError{Item: doc.Key(), Err: err}
		}
		if len(vectors) != len(texts) {
			return nil, &domain.EmbeddingError{
				Item: doc.Key(),
				Err:  fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts)),
			}
		}

		for i, v := range vectors {
			if dims > 0 && len(v) != dims {
				return nil, &domain.ConfigurationError{
					Op:  "embed " + doc.Key(),
					Err: fmt.Errorf("%w: model %s returned %d, expected %d", domain.ErrDimensionMismatch, p.service.ModelName(), len(v), dims),
				}
			}
			out[start+i].Vector = v
		}
	}
	return out, nil
}
