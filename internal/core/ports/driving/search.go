package driving

import (
	"context"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// RetrievalService assembles the context for a question.
type RetrievalService interface {
	// Retrieve gathers knowledge-base and web context for a query.
	// The web part degrades to empty text instead of failing.
	Retrieve(ctx context.Context, query string, params domain.SearchParams) (*domain.ContextBundle, error)
}

// AnswerService answers questions against the indexed corpus.
type AnswerService interface {
	// Ask retrieves context for the query and generates an answer in params.Language.
	Ask(ctx context.Context, query string, params domain.SearchParams) (*domain.Answer, error)
}
