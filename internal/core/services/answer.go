package services

import (
	"context"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driving"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// AnswerService answers a question: retrieve, then synthesize.
type AnswerService struct {
	retriever   driving.RetrievalService
	synthesizer *AnswerSynthesizer
}

// NewAnswerService creates an answer service.
func NewAnswerService(retriever driving.RetrievalService, synthesizer *AnswerSynthesizer) *AnswerService {
	return &AnswerService{retriever: retriever, synthesizer: synthesizer}
}

// Ask retrieves context for the query and generates an answer in params.Language.
// It returns either a complete answer or an error, never a partial answer.
func (s *AnswerService) Ask(ctx context.Context, query string, params domain.SearchParams) (*domain.Answer, error) {
	bundle, err := s.retriever.Retrieve(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return s.synthesizer.Synthesize(ctx, bundle, params.Language)
}
