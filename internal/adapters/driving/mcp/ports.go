package mcp

import (
	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/core/ports/driving"
)

// Ports aggregates all port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answer answers questions.
	Answer driving.AnswerService

	// Retrieval returns the context bundle without generating an answer.
	Retrieval driving.RetrievalService

	// Collections describes the vector collection.
	Collections driving.CollectionService

	// Prompts exposes the answer templates.
	Prompts driven.PromptStore

	// Defaults are the search parameters tool calls start from.
	// The zero value means domain.DefaultSearchParams().
	Defaults domain.SearchParams
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	// Retrieval, Collections and Prompts are optional.
	return nil
}

func (p *Ports) defaults() domain.SearchParams {
	if p.Defaults == (domain.SearchParams{}) {
		return domain.DefaultSearchParams()
	}
	return p.Defaults
}
