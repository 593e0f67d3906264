package domain

import "strings"

// Document represents a normalised source page.
// It is produced by a document source and is immutable once acquired.
type Document struct {
	// ID is an optional stable identifier (defaults to the URL).
	ID string `json:"id,omitempty"`

	// Title is the human-readable title.
	Title string `json:"title"`

	// URL is the original location of the page or file.
	URL string `json:"url"`

	// Language is the language the content is written in.
	Language Language `json:"language"`

	// Content is the full text content after normalisation.
	Content string `json:"content"`
}

// Key returns the identifier used to report on this document.
func (d Document) Key() string {
	switch {
	case d.ID != "":
		return d.ID
	case d.URL != "":
		return d.URL
	default:
		return d.Title
	}
}

// IsEmpty returns true if the document has no indexable content.
func (d Document) IsEmpty() bool {
	return strings.TrimSpace(d.Content) == ""
}

// ChunkPayload is the metadata stored alongside a chunk vector.
type ChunkPayload struct {
	// Content is the text content of this chunk.
	Content string `json:"content"`

	// Language is copied from the parent document.
	Language Language `json:"language"`

	// Title is copied from the parent document.
	Title string `json:"title"`

	// URL is copied from the parent document.
	URL string `json:"url"`
}

// Chunk represents an embedded segment of a document.
// Re-upserting a chunk with the same ID replaces it in place.
type Chunk struct {
	// ID is a globally unique identifier (random UUID).
	ID string `json:"id"`

	// Vector is the embedding of Payload.Content.
	Vector []float32 `json:"vector"`

	// Payload holds the chunk text and its document metadata.
	Payload ChunkPayload `json:"payload"`
}

// Dimension returns the length of the chunk vector.
func (c Chunk) Dimension() int {
	return len(c.Vector)
}

// ScoredChunk is a chunk returned by a similarity query.
type ScoredChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk `json:"chunk"`

	// Score is the cosine similarity between the query and the chunk.
	Score float64 `json:"score"`
}
