// Package postprocessors turns normalised documents into embedded chunks.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs processors in order. The first receives no chunks and
// creates them; the rest refine what they are given.
type Pipeline struct {
	processors []driven.PostProcessor

	// dimension, when set, is the vector length every chunk must leave with.
	dimension int
}

// NewPipeline chains processors in the order given.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{processors: processors}
}

// RequireDimension makes Process reject chunks whose vector length is
// not n. Zero disables the check.
func (p *Pipeline) RequireDimension(n int) *Pipeline {
	p.dimension = n
	return p
}

// Process runs doc through every processor and checks the result
// against the collection dimension.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, processor := range p.processors {
		var err error
		chunks, err = processor.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	if p.dimension > 0 {
		for _, c := range chunks {
			if len(c.Vector) != p.dimension {
				return nil, &domain.ConfigurationError{
					Op: "process " + doc.Title,
					Err: fmt.Errorf("%w: chunk vector has %d dimensions, collection expects %d",
						domain.ErrDimensionMismatch, len(c.Vector), p.dimension),
				}
			}
		}
	}
	return chunks, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Names returns the processor names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, processor := range p.processors {
		names[i] = processor.Name()
	}
	return names
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
