// Package chunker splits document content into overlapping chunks.
package chunker

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// Verify interface compliance.
var _ driven.PostProcessor = (*Processor)(nil)

type config struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*config)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *config) {
		c.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *config) {
		c.overlap = overlap
	}
}

// WithSeparators replaces the separator priority list.
func WithSeparators(separators ...string) Option {
	return func(c *config) {
		if len(separators) > 0 {
			c.separators = slices.Clone(separators)
		}
	}
}

// Processor splits documents into chunks with fresh IDs and payloads
// copied from the document. Vectors are left for the embedding processor.
type Processor struct {
	splitter *Splitter
}

// New creates a chunker processor. It rejects an overlap that is not
// smaller than the chunk size.
func New(opts ...Option) (*Processor, error) {
	cfg := config{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	splitter, err := NewSplitter(cfg.chunkSize, cfg.overlap, WithSeparators(cfg.separators...))
	if err != nil {
		return nil, err
	}
	return &Processor{splitter: splitter}, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Splitter exposes the underlying splitter.
func (p *Processor) Splitter() *Splitter {
	return p.splitter
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Empty content produces no chunks.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	payload := domain.ChunkPayload{
		Language: doc.Language,
		Title:    doc.Title,
		URL:      doc.URL,
	}

	var chunks []domain.Chunk
	for text := range p.splitter.Split(doc.Content) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		payload.Content = text
		chunks = append(chunks, domain.Chunk{
			ID:      uuid.New().String(),
			Payload: payload,
		})
	}
	return chunks, nil
}
