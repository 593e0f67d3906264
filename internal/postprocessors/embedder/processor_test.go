package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

type fakeEmbedding struct {
	dims    int
	calls   [][]string
	err     error
	badDims int
}

func (f *fakeEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (f *fakeEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	size := f.dims
	if f.badDims > 0 {
		size = f.badDims
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, size)
		v[0] = float32(len(text))
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedding) Dimensions() int            { return f.dims }
func (f *fakeEmbedding) ModelName() string          { return "fake" }
func (f *fakeEmbedding) Ping(context.Context) error { return nil }
func (f *fakeEmbedding) Close() error               { return nil }

func chunksOf(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		out[i] = domain.Chunk{ID: text, Payload: domain.ChunkPayload{Content: text}}
	}
	return out
}

func TestNew_RequiresService(t *testing.T) {
	_, err := New(nil)
	assert.True(t, domain.IsConfigurationError(err))
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestProcessor_Process(t *testing.T) {
	doc := &domain.Document{Title: "Olympics"}

	t.Run("batches and keeps order", func(t *testing.T) {
		svc := &fakeEmbedding{dims: 3}
		p, err := New(svc, WithBatchSize(2))
		require.NoError(t, err)

		in := chunksOf("a", "bb", "ccc", "dddd", "eeeee")
		out, err := p.Process(context.Background(), doc, in)

		require.NoError(t, err)
		require.Len(t, out, 5)
		assert.Len(t, svc.calls, 3)
		for i, c := range out {
			assert.Equal(t, in[i].ID, c.ID)
			assert.Len(t, c.Vector, 3)
			assert.Equal(t, float32(i+1), c.Vector[0])
		}
		assert.Nil(t, in[0].Vector, "input chunks are not modified")
	})

	t.Run("no chunks means no calls", func(t *testing.T) {
		svc := &fakeEmbedding{dims: 3}
		p, _ := New(svc)
		out, err := p.Process(context.Background(), doc, nil)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Empty(t, svc.calls)
	})

	t.Run("service failure is an embedding error", func(t *testing.T) {
		p, _ := New(&fakeEmbedding{dims: 3, err: errors.New("boom")})
		out, err := p.Process(context.Background(), doc, chunksOf("a"))

		assert.Nil(t, out)
		var embErr *domain.EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, "Olympics", embErr.Item)
		assert.False(t, domain.IsConfigurationError(err))
	})

	t.Run("dimension mismatch is fatal", func(t *testing.T) {
		p, _ := New(&fakeEmbedding{dims: 3, badDims: 5})
		_, err := p.Process(context.Background(), doc, chunksOf("a"))

		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
		assert.True(t, domain.IsConfigurationError(err))
	})
}
