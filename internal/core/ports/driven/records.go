package driven

import "github.com/custodia-labs/wikirag/internal/core/domain"

// RecordStore persists document and chunk records between pipeline stages.
// Records are addressed by directory; the returned paths identify
// individual records in summaries and failure lists.
type RecordStore interface {
	// WriteDocument stores one document record in dir and returns its path.
	WriteDocument(dir string, doc domain.Document) (string, error)

	// ListDocuments returns the document record paths in dir, sorted.
	ListDocuments(dir string) ([]string, error)

	// ReadDocument loads a document record.
	ReadDocument(path string) (*domain.Document, error)

	// WriteChunk stores one chunk record in dir and returns its path.
	WriteChunk(dir string, chunk domain.Chunk) (string, error)

	// ListChunks returns the chunk record paths in dir, sorted.
	ListChunks(dir string) ([]string, error)

	// ReadChunk loads a chunk record.
	ReadChunk(path string) (*domain.Chunk, error)

	// RemoveChunk deletes a chunk record. A missing record is not an error.
	RemoveChunk(path string) error
}
