package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/core/ports/driving"
	"github.com/custodia-labs/wikirag/internal/logger"
)

// Ensure CollectionManager implements the interface.
var _ driving.CollectionService = (*CollectionManager)(nil)

// CollectionManager owns the lifecycle checks of one vector collection.
type CollectionManager struct {
	index     driven.VectorIndex
	name      string
	dimension int
	distance  domain.Distance
}

// NewCollectionManager creates a manager for the named collection.
// dimension is the embedding size; 0 skips dimension checks.
// New collections always use cosine distance.
func NewCollectionManager(index driven.VectorIndex, name string, dimension int) *CollectionManager {
	return &CollectionManager{
		index:     index,
		name:      name,
		dimension: dimension,
		distance:  domain.DistanceCosine,
	}
}

// Name returns the collection name.
func (m *CollectionManager) Name() string {
	return m.name
}

// Ensure creates the collection if missing and checks an existing one.
func (m *CollectionManager) Ensure(ctx context.Context) (*domain.Collection, error) {
	if m.index == nil {
		return nil, m.configError(domain.ErrVectorIndexUnavailable)
	}

	c, err := m.index.Collection(ctx, m.name)
	if errors.Is(err, domain.ErrNotFound) {
		if m.dimension <= 0 {
			return nil, m.configError(fmt.Errorf("%w: cannot create collection without a vector dimension", domain.ErrInvalidInput))
		}
		logger.Info("Creating collection %q (dimension %d, %s)", m.name, m.dimension, m.distance)
		if err := m.index.CreateCollection(ctx, m.name, m.dimension, m.distance); err != nil {
			return nil, fmt.Errorf("create collection %s: %w", m.name, err)
		}
		c, err = m.index.Collection(ctx, m.name)
	}
	if err != nil {
		return nil, m.configError(fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err))
	}

	if err := m.check(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the collection exists, is healthy and matches the
// embedding dimension. Every failure is a domain.ConfigurationError.
func (m *CollectionManager) Validate(ctx context.Context) (*domain.Collection, error) {
	if m.index == nil {
		return nil, m.configError(domain.ErrVectorIndexUnavailable)
	}

	c, err := m.index.Collection(ctx, m.name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, m.configError(fmt.Errorf("%w: collection %q does not exist", domain.ErrNotFound, m.name))
	}
	if err != nil {
		return nil, m.configError(fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err))
	}
	if !c.IsHealthy() {
		return nil, m.configError(fmt.Errorf("%w: collection %q status is %s", domain.ErrCollectionUnhealthy, m.name, c.Status))
	}

	if err := m.check(c); err != nil {
		return nil, err
	}
	logger.Debug("Collection %q is healthy (%d points)", m.name, c.PointCount)
	return c, nil
}

// Status describes the collection.
func (m *CollectionManager) Status(ctx context.Context) (*domain.Collection, error) {
	if m.index == nil {
		return nil, m.configError(domain.ErrVectorIndexUnavailable)
	}
	c, err := m.index.Collection(ctx, m.name)
	if err != nil {
		return nil, fmt.Errorf("describe collection %s: %w", m.name, err)
	}
	return c, nil
}

func (m *CollectionManager) check(c *domain.Collection) error {
	if m.dimension > 0 {
		if err := c.CheckDimension(m.dimension); err != nil {
			return err
		}
	}
	if c.Distance != m.distance {
		return m.configError(fmt.Errorf("%w: expected %s, got %s", domain.ErrDistanceMismatch, m.distance, c.Distance))
	}
	return nil
}

func (m *CollectionManager) configError(err error) error {
	return &domain.ConfigurationError{Op: "collection " + m.name, Err: err}
}
