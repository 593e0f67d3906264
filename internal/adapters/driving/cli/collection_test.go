package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

func healthyCollection() *domain.Collection {
	return &domain.Collection{
		Name:       "wikipedia",
		Dimension:  384,
		Distance:   domain.DistanceCosine,
		Status:     domain.CollectionStatusGreen,
		PointCount: 1200,
	}
}

func TestCollectionStatusCmd(t *testing.T) {
	collections := &mockCollectionService{collection: healthyCollection()}

	out, err := execute(t, &Services{Collections: collections}, "collection", "status")

	require.NoError(t, err)
	assert.False(t, collections.ensured)
	assert.Contains(t, out, "Collection wikipedia")
	assert.Contains(t, out, "Status:    green")
	assert.Contains(t, out, "Dimension: 384")
	assert.Contains(t, out, "Distance:  Cosine")
	assert.Contains(t, out, "Points:    1200")
}

func TestCollectionEnsureCmd(t *testing.T) {
	collections := &mockCollectionService{collection: healthyCollection()}

	_, err := execute(t, &Services{Collections: collections}, "collection", "ensure")

	require.NoError(t, err)
	assert.True(t, collections.ensured)
}

func TestCollectionStatusCmd_JSON(t *testing.T) {
	c := healthyCollection()
	c.Status = domain.CollectionStatusRed
	collections := &mockCollectionService{collection: c}

	out, err := execute(t, &Services{Collections: collections}, "collection", "status", "--json")

	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "wikipedia", got["name"])
	assert.Equal(t, float64(384), got["vector_dimension"])
	assert.Equal(t, "red", got["status"])
}

func TestCollectionStatusCmd_Error(t *testing.T) {
	collections := &mockCollectionService{err: domain.ErrVectorIndexUnavailable}

	_, err := execute(t, &Services{Collections: collections}, "collection", "status")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestCollectionCmd_HasTargetFlags(t *testing.T) {
	for _, name := range []string{"collection", "host", "port", "json"} {
		assert.NotNil(t, collectionStatusCmd.Flags().Lookup(name), name)
		assert.NotNil(t, collectionEnsureCmd.Flags().Lookup(name), name)
	}
}
