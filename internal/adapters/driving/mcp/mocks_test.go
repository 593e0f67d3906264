package mcp

import (
	"context"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer *domain.Answer
	err    error

	query  string
	params domain.SearchParams
}

func (m *mockAnswerService) Ask(_ context.Context, query string, params domain.SearchParams) (*domain.Answer, error) {
	m.query = query
	m.params = params
	return m.answer, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	bundle *domain.ContextBundle
	err    error
	params domain.SearchParams
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context, _ string, params domain.SearchParams,
) (*domain.ContextBundle, error) {
	m.params = params
	return m.bundle, m.err
}

// mockCollectionService is a mock implementation of driving.CollectionService.
type mockCollectionService struct {
	collection *domain.Collection
	err        error
}

func (m *mockCollectionService) Ensure(context.Context) (*domain.Collection, error) {
	return m.collection, m.err
}

func (m *mockCollectionService) Validate(context.Context) (*domain.Collection, error) {
	return m.collection, m.err
}

func (m *mockCollectionService) Status(context.Context) (*domain.Collection, error) {
	return m.collection, m.err
}

// mockPromptStore is a mock implementation of driven.PromptStore.
type mockPromptStore map[string]string

func (m mockPromptStore) Load(name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return text, nil
}

func (m mockPromptStore) Reload() {}
