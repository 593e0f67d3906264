// Package memory provides an in-memory implementation of driven.VectorIndex.
//
// Queries are exact (brute-force) and ties keep insertion order. Data lives
// only as long as the process; it backs tests and the "memory" backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/vectormath"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type point struct {
	seq   int64
	chunk domain.Chunk
}

type collection struct {
	info    domain.Collection
	points  map[string]*point
	nextSeq int64
}

// Index is an in-memory vector index.
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{collections: make(map[string]*collection)}
}

// Collection describes a collection.
func (x *Index) Collection(_ context.Context, name string) (*domain.Collection, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	c, ok := x.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	info := c.info
	info.PointCount = len(c.points)
	return &info, nil
}

// CreateCollection creates an empty collection.
func (x *Index) CreateCollection(_ context.Context, name string, dimension int, distance domain.Distance) error {
	if name == "" || dimension <= 0 {
		return fmt.Errorf("create collection: %w: name and positive dimension required", domain.ErrInvalidInput)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.collections[name]; ok {
		return fmt.Errorf("create collection %s: already exists", name)
	}
	x.collections[name] = &collection{
		info: domain.Collection{
			Name:      name,
			Dimension: dimension,
			Distance:  distance,
			Status:    domain.CollectionStatusGreen,
		},
		points: make(map[string]*point),
	}
	return nil
}

// Upsert inserts or replaces chunks by ID. A replaced point keeps its
// original insertion position. The batch is rejected as a whole if any
// vector has the wrong dimension.
func (x *Index) Upsert(ctx context.Context, name string, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	c, ok := x.collections[name]
	if !ok {
		return fmt.Errorf("upsert into %s: %w", name, domain.ErrNotFound)
	}
	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("upsert into %s: %w: chunk without id", name, domain.ErrInvalidInput)
		}
		if err := c.info.CheckDimension(len(chunk.Vector)); err != nil {
			return err
		}
	}

	for _, chunk := range chunks {
		chunk.Vector = append([]float32(nil), chunk.Vector...)
		if p, ok := c.points[chunk.ID]; ok {
			p.chunk = chunk
			continue
		}
		c.nextSeq++
		c.points[chunk.ID] = &point{seq: c.nextSeq, chunk: chunk}
	}
	return nil
}

// Query scores every point against vector and ranks the results.
func (x *Index) Query(ctx context.Context, name string, vector []float32, topK int, threshold float64) ([]domain.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	c, ok := x.collections[name]
	if !ok {
		return nil, fmt.Errorf("query %s: %w", name, domain.ErrNotFound)
	}
	if err := c.info.CheckDimension(len(vector)); err != nil {
		return nil, err
	}

	points := make([]*point, 0, len(c.points))
	for _, p := range c.points {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].seq < points[j].seq })

	hits := make([]domain.ScoredChunk, len(points))
	for i, p := range points {
		hits[i] = domain.ScoredChunk{
			Chunk: p.chunk,
			Score: vectormath.Score(c.info.Distance, vector, p.chunk.Vector),
		}
	}
	return vectormath.Rank(hits, topK, threshold), nil
}

// Count returns the number of points in a collection.
func (x *Index) Count(_ context.Context, name string) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	c, ok := x.collections[name]
	if !ok {
		return 0, fmt.Errorf("count %s: %w", name, domain.ErrNotFound)
	}
	return len(c.points), nil
}

// SetStatus overrides the reported health of a collection.
func (x *Index) SetStatus(name string, status domain.CollectionStatus) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	c, ok := x.collections[name]
	if !ok {
		return fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	c.info.Status = status
	return nil
}

// Close releases resources.
func (x *Index) Close() error {
	return nil
}
