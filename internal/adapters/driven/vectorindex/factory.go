// Package vectorindex selects the driven.VectorIndex implementation named by
// the vector_store.backend setting.
package vectorindex

import (
	"fmt"

	"github.com/custodia-labs/wikirag/internal/adapters/driven/vectorindex/memory"
	"github.com/custodia-labs/wikirag/internal/adapters/driven/vectorindex/qdrant"
	"github.com/custodia-labs/wikirag/internal/adapters/driven/vectorindex/sqlite"
	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

// Open creates the vector index for the configured backend.
func Open(settings domain.VectorStoreSettings) (driven.VectorIndex, error) {
	switch settings.Backend {
	case domain.VectorBackendQdrant, "":
		return qdrant.NewIndex(qdrant.Config{
			URL:    settings.URL,
			APIKey: settings.APIKey,
		}), nil

	case domain.VectorBackendSQLite:
		idx, err := sqlite.NewIndex(settings.DataDir)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		return idx, nil

	case domain.VectorBackendMemory:
		return memory.NewIndex(), nil

	default:
		return nil, &domain.ConfigurationError{
			Op:  "open vector index",
			Err: fmt.Errorf("%w: backend %q", domain.ErrUnsupportedType, settings.Backend),
		}
	}
}
