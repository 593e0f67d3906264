// Package indextest holds behaviour tests shared by every driven.VectorIndex
// implementation.
package indextest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

// Factory returns a fresh, empty index. Cleanup is registered on t.
type Factory func(t *testing.T) driven.VectorIndex

const collection = "wikipedia"

// Chunk builds a chunk with the given id, vector and content.
func Chunk(id string, content string, vector ...float32) domain.Chunk {
	return domain.Chunk{
		ID:     id,
		Vector: vector,
		Payload: domain.ChunkPayload{
			Content:  content,
			Language: domain.LanguageEnglish,
			Title:    "Olympic Games",
			URL:      "https://en.wikipedia.org/wiki/Olympic_Games",
		},
	}
}

// Run exercises the VectorIndex contract.
func Run(t *testing.T, newIndex Factory) {
	t.Run("missing collection", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		_, err := idx.Collection(ctx, collection)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = idx.Count(ctx, collection)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("create and describe", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()

		require.NoError(t, idx.CreateCollection(ctx, collection, 3, domain.DistanceCosine))

		info, err := idx.Collection(ctx, collection)
		require.NoError(t, err)
		assert.Equal(t, collection, info.Name)
		assert.Equal(t, 3, info.Dimension)
		assert.Equal(t, domain.DistanceCosine, info.Distance)
		assert.True(t, info.IsHealthy())
		assert.Zero(t, info.PointCount)

		assert.Error(t, idx.CreateCollection(ctx, collection, 3, domain.DistanceCosine))
	})

	t.Run("upsert is idempotent", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.CreateCollection(ctx, collection, 3, domain.DistanceCosine))

		chunks := []domain.Chunk{
			Chunk("a", "athens", 1, 0, 0),
			Chunk("b", "paris", 0, 1, 0),
		}
		require.NoError(t, idx.Upsert(ctx, collection, chunks))
		require.NoError(t, idx.Upsert(ctx, collection, chunks))

		n, err := idx.Count(ctx, collection)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		replaced := Chunk("a", "athens 1896", 1, 0, 0)
		require.NoError(t, idx.Upsert(ctx, collection, []domain.Chunk{replaced}))

		n, err = idx.Count(ctx, collection)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		hits, err := idx.Query(ctx, collection, []float32{1, 0, 0}, 1, 0.5)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "athens 1896", hits[0].Chunk.Payload.Content)
	})

	t.Run("identical vector is the top hit", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.CreateCollection(ctx, collection, 3, domain.DistanceCosine))
		require.NoError(t, idx.Upsert(ctx, collection, []domain.Chunk{
			Chunk("a", "a", 0.9, 0.1, 0),
			Chunk("b", "b", 0.2, 0.3, 0.9),
			Chunk("c", "c", 0.5, 0.5, 0.5),
		}))

		hits, err := idx.Query(ctx, collection, []float32{0.2, 0.3, 0.9}, 4, 0)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, "b", hits[0].Chunk.ID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
		for i := 1; i < len(hits); i++ {
			assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		}
		assert.Equal(t, hits[0].Chunk.Payload, Chunk("b", "b").Payload)
	})

	t.Run("threshold excludes and empty result is not an error", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.CreateCollection(ctx, collection, 2, domain.DistanceCosine))
		require.NoError(t, idx.Upsert(ctx, collection, []domain.Chunk{
			Chunk("x", "x", 1, 0),
			Chunk("y", "y", 0, 1),
		}))

		hits, err := idx.Query(ctx, collection, []float32{1, 0}, 4, 0.5)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "x", hits[0].Chunk.ID)

		hits, err = idx.Query(ctx, collection, []float32{-1, 0}, 4, 0.5)
		require.NoError(t, err)
		assert.NotNil(t, hits)
		assert.Empty(t, hits)
	})

	t.Run("top k and stable ties", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.CreateCollection(ctx, collection, 2, domain.DistanceCosine))

		var chunks []domain.Chunk
		for i := range 6 {
			chunks = append(chunks, Chunk(fmt.Sprintf("p%d", i), "same", 1, 1))
		}
		require.NoError(t, idx.Upsert(ctx, collection, chunks))
		// Re-upserting an early point must not move it to the back.
		require.NoError(t, idx.Upsert(ctx, collection, chunks[:1]))

		hits, err := idx.Query(ctx, collection, []float32{1, 1}, 4, 0.5)
		require.NoError(t, err)
		require.Len(t, hits, 4)
		for i, h := range hits {
			assert.Equal(t, fmt.Sprintf("p%d", i), h.Chunk.ID)
		}
	})

	t.Run("dimension mismatch is a configuration error", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.CreateCollection(ctx, collection, 3, domain.DistanceCosine))

		err := idx.Upsert(ctx, collection, []domain.Chunk{
			Chunk("ok", "ok", 1, 0, 0),
			Chunk("bad", "bad", 1, 0),
		})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
		assert.True(t, domain.IsConfigurationError(err))

		n, err := idx.Count(ctx, collection)
		require.NoError(t, err)
		assert.Zero(t, n, "a rejected batch stores nothing")

		_, err = idx.Query(ctx, collection, []float32{1, 0}, 4, 0)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("collections are isolated", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.CreateCollection(ctx, "a", 2, domain.DistanceCosine))
		require.NoError(t, idx.CreateCollection(ctx, "b", 2, domain.DistanceCosine))
		require.NoError(t, idx.Upsert(ctx, "a", []domain.Chunk{Chunk("1", "one", 1, 0)}))

		n, err := idx.Count(ctx, "b")
		require.NoError(t, err)
		assert.Zero(t, n)

		info, err := idx.Collection(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 1, info.PointCount)
	})

	t.Run("concurrent writers all land", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.CreateCollection(ctx, collection, 2, domain.DistanceCosine))

		const writers, perWriter = 4, 25
		var g errgroup.Group
		for w := 0; w < writers; w++ {
			g.Go(func() error {
				for i := 0; i < perWriter; i++ {
					c := Chunk(fmt.Sprintf("w%d-%d", w, i), "text", 1, float32(i))
					if err := idx.Upsert(ctx, collection, []domain.Chunk{c}); err != nil {
						return err
					}
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		n, err := idx.Count(ctx, collection)
		require.NoError(t, err)
		assert.Equal(t, writers*perWriter, n)
	})
}
