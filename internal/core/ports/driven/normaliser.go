package driven

import (
	"context"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// Normaliser transforms raw documents into plain-text documents.
// Each normaliser handles specific MIME types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise transforms a raw document into a document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Normalisation only produces a Document with Content; chunking happens later.
type NormaliseResult struct {
	// Document is the normalised document with Content field populated.
	Document domain.Document
}

// TextCleaner prepares acquired text for indexing.
type TextCleaner interface {
	// Clean returns the cleaned text for a language.
	// Unsupported languages are a domain.ConfigurationError.
	Clean(text string, lang domain.Language) (string, error)
}
