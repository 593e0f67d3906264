package domain

import (
	"fmt"
	"strings"
)

// Distance is the similarity metric a collection is configured with.
type Distance string

// Known distance metrics. Collections created by WikiRag always use Cosine.
const (
	DistanceCosine Distance = "Cosine"
	DistanceDot    Distance = "Dot"
	DistanceEuclid Distance = "Euclid"
)

// ParseDistance normalises a metric name as reported by a vector store.
func ParseDistance(s string) Distance {
	switch strings.ToLower(s) {
	case "cosine":
		return DistanceCosine
	case "dot":
		return DistanceDot
	case "euclid", "euclidean":
		return DistanceEuclid
	default:
		return Distance(s)
	}
}

// CollectionStatus is the health reported for a collection.
type CollectionStatus string

// Collection statuses, following the Qdrant vocabulary.
const (
	CollectionStatusGreen  CollectionStatus = "green"
	CollectionStatusYellow CollectionStatus = "yellow"
	CollectionStatusRed    CollectionStatus = "red"
	CollectionStatusGrey   CollectionStatus = "grey"
)

// Collection describes a vector collection.
type Collection struct {
	// Name is the collection name.
	Name string `json:"name"`

	// Dimension is the fixed vector length.
	Dimension int `json:"vector_dimension"`

	// Distance is the similarity metric.
	Distance Distance `json:"distance_metric"`

	// Status is the reported health.
	Status CollectionStatus `json:"status"`

	// PointCount is the number of stored points, when known.
	PointCount int `json:"point_count"`
}

// IsHealthy returns true if the collection can serve queries and upserts.
func (c Collection) IsHealthy() bool {
	return c.Status == CollectionStatusGreen
}

// CheckDimension reports a ConfigurationError wrapping ErrDimensionMismatch
// when a vector of length n cannot be stored in or compared with c.
func (c Collection) CheckDimension(n int) error {
	if n != c.Dimension {
		return &ConfigurationError{
			Op:  "collection " + c.Name,
			Err: fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, c.Dimension, n),
		}
	}
	return nil
}
