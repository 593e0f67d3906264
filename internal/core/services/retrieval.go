package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/core/ports/driving"
	"github.com/custodia-labs/wikirag/internal/logger"
)

// Ensure RetrievalOrchestrator implements the interface.
var _ driving.RetrievalService = (*RetrievalOrchestrator)(nil)

// KBSeparator joins ranked chunk contents into the knowledge-base context.
const KBSeparator = "\n\n"

// RetrievalOrchestrator assembles the context bundle for a query.
// The knowledge-base branch and the web branch run concurrently; the web
// branch is bounded by a timeout and degrades to empty text on failure.
type RetrievalOrchestrator struct {
	collections driving.CollectionService
	index       driven.VectorIndex
	embedding   driven.EmbeddingService
	web         driven.WebSearcher
	collection  string
	webTimeout  time.Duration

	mu        sync.Mutex
	validated bool
}

// NewRetrievalOrchestrator creates a retrieval orchestrator.
// web may be nil, in which case the web branch always yields "".
// A zero webTimeout uses domain.DefaultWebTimeout.
func NewRetrievalOrchestrator(
	collections driving.CollectionService,
	index driven.VectorIndex,
	embedding driven.EmbeddingService,
	web driven.WebSearcher,
	collection string,
	webTimeout time.Duration,
) *RetrievalOrchestrator {
	if webTimeout <= 0 {
		webTimeout = domain.DefaultWebTimeout
	}
	return &RetrievalOrchestrator{
		collections: collections,
		index:       index,
		embedding:   embedding,
		web:         web,
		collection:  collection,
		webTimeout:  webTimeout,
	}
}

// Retrieve gathers knowledge-base and web context for a query.
func (o *RetrievalOrchestrator) Retrieve(
	ctx context.Context, query string, params domain.SearchParams,
) (*domain.ContextBundle, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q", query)

	if err := params.Validate(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if err := o.validateOnce(ctx); err != nil {
		return nil, err
	}

	caller := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		matches []domain.ScoredChunk
		kbErr   error
		web     string
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		matches, kbErr = o.searchKB(ctx, query, params)
		if kbErr != nil {
			// No answer can be produced; stop the web branch early.
			cancel()
		}
	}()

	go func() {
		defer wg.Done()
		web = o.searchWeb(ctx, query, params.ExpandContext)
	}()

	wg.Wait()

	if kbErr != nil {
		logger.Warn("Retrieval failed: %v", kbErr)
		return nil, kbErr
	}
	if err := caller.Err(); err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	logger.Info("Retrieved %d matches, web context %d chars", len(matches), len(web))
	return &domain.ContextBundle{
		Query:      query,
		KBContext:  JoinContents(matches),
		WebContext: web,
		Matches:    matches,
	}, nil
}

// validateOnce checks the collection the first time it is needed.
// Only a successful validation is remembered.
func (o *RetrievalOrchestrator) validateOnce(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.validated {
		return nil
	}
	if o.collections == nil {
		return &domain.ConfigurationError{Op: "validate collection", Err: domain.ErrVectorIndexUnavailable}
	}
	if _, err := o.collections.Validate(ctx); err != nil {
		return err
	}
	o.validated = true
	return nil
}

func (o *RetrievalOrchestrator) searchKB(
	ctx context.Context, query string, params domain.SearchParams,
) ([]domain.ScoredChunk, error) {
	if o.embedding == nil {
		return nil, &domain.EmbeddingError{Item: "query", Err: domain.ErrEmbeddingUnavailable}
	}

	vector, err := o.embedding.Embed(ctx, query)
	if err != nil {
		return nil, &domain.EmbeddingError{Item: "query", Err: err}
	}
	logger.Debug("Query embedding: %d dimensions", len(vector))

	hits, err := o.index.Query(ctx, o.collection, vector, params.TopK, params.ScoreThreshold)
	if err != nil {
		if domain.IsConfigurationError(err) {
			return nil, err
		}
		return nil, &domain.RetrievalError{Op: "query " + o.collection, Err: err}
	}

	for i, h := range hits {
		logger.Debug("  #%d score=%.4f title=%q", i+1, h.Score, h.Chunk.Payload.Title)
	}
	return hits, nil
}

type webResult struct {
	text string
	err  error
}

// searchWeb never fails: every error, panic or timeout becomes "".
func (o *RetrievalOrchestrator) searchWeb(ctx context.Context, query string, enabled bool) string {
	if !enabled || o.web == nil {
		logger.Debug("Web context expansion disabled")
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, o.webTimeout)
	defer cancel()

	// Buffered so the searcher goroutine can finish after a timeout.
	done := make(chan webResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- webResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		text, err := o.web.Search(ctx, query)
		done <- webResult{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			o.degrade(query, r.err)
			return ""
		}
		logger.Debug("Web context from %s: %d chars", o.web.Name(), len(r.text))
		return strings.TrimSpace(r.text)
	case <-ctx.Done():
		o.degrade(query, ctx.Err())
		return ""
	}
}

func (o *RetrievalOrchestrator) degrade(query string, err error) {
	logger.Warn("%v (continuing without web context)", &domain.WebSearchError{Query: query, Err: err})
}

// JoinContents joins chunk contents in ranked order.
func JoinContents(matches []domain.ScoredChunk) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.Chunk.Payload.Content)
	}
	return strings.Join(parts, KBSeparator)
}
