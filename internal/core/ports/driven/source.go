package driven

import (
	"context"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// DocumentSource fetches raw documents for the acquire stage.
// A reference is whatever the source understands: a Wikipedia URL or
// title, a file path, a glob pattern.
type DocumentSource interface {
	// Name returns the source name for logging and summaries.
	Name() string

	// Accepts reports whether the source can resolve the reference.
	Accepts(ref string) bool

	// Fetch retrieves the documents a reference resolves to.
	// lang is used when the reference itself does not determine a language.
	Fetch(ctx context.Context, ref string, lang domain.Language) ([]domain.RawDocument, error)
}
