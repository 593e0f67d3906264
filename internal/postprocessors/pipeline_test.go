package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// fixedProcessor returns its chunks, or passes the received ones through.
type fixedProcessor struct {
	name   string
	chunks []domain.Chunk
	err    error
}

func (f *fixedProcessor) Name() string { return f.name }

func (f *fixedProcessor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.chunks != nil {
		return f.chunks, nil
	}
	return chunks, nil
}

func embeddedChunk(id string, vector ...float32) domain.Chunk {
	return domain.Chunk{ID: id, Vector: vector, Payload: domain.ChunkPayload{Content: id}}
}

func TestPipeline_AddAndNames(t *testing.T) {
	p := NewPipeline()
	assert.Zero(t, p.Len())

	p.Add(&fixedProcessor{name: "chunker"})
	p.Add(&fixedProcessor{name: "embedder"})

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []string{"chunker", "embedder"}, p.Names())
}

func TestPipeline_Process(t *testing.T) {
	doc := &domain.Document{Title: "Roma", Content: "prima"}

	t.Run("nil document", func(t *testing.T) {
		_, err := NewPipeline().Process(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty pipeline", func(t *testing.T) {
		chunks, err := NewPipeline().Process(context.Background(), doc)
		require.NoError(t, err)
		assert.Nil(t, chunks)
	})

	t.Run("last processor wins", func(t *testing.T) {
		p := NewPipeline(
			&fixedProcessor{name: "chunker", chunks: []domain.Chunk{{ID: "c1"}}},
			&fixedProcessor{name: "passthrough"},
			&fixedProcessor{name: "embedder", chunks: []domain.Chunk{embeddedChunk("c1", 1)}},
		)

		chunks, err := p.Process(context.Background(), doc)

		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, []float32{1}, chunks[0].Vector)
	})

	t.Run("processor error names the processor", func(t *testing.T) {
		cause := &domain.EmbeddingError{Item: "Roma", Err: errors.New("offline")}
		p := NewPipeline(
			&fixedProcessor{name: "chunker", chunks: []domain.Chunk{{ID: "c1"}}},
			&fixedProcessor{name: "embedder", err: cause},
		)

		_, err := p.Process(context.Background(), doc)

		var embErr *domain.EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Contains(t, err.Error(), "processor embedder")
	})
}

func TestPipeline_RequireDimension(t *testing.T) {
	doc := &domain.Document{Title: "Roma", Content: "prima"}
	chunks := []domain.Chunk{embeddedChunk("c1", 1, 0, 0), embeddedChunk("c2", 0, 1)}

	t.Run("mismatch is a configuration error", func(t *testing.T) {
		p := NewPipeline(&fixedProcessor{name: "embedder", chunks: chunks}).RequireDimension(3)

		_, err := p.Process(context.Background(), doc)

		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
		assert.True(t, domain.IsConfigurationError(err))
		assert.Contains(t, err.Error(), "Roma")
	})

	t.Run("zero disables the check", func(t *testing.T) {
		p := NewPipeline(&fixedProcessor{name: "embedder", chunks: chunks}).RequireDimension(0)

		out, err := p.Process(context.Background(), doc)

		require.NoError(t, err)
		assert.Len(t, out, 2)
	})
}
