package domain

import (
	"errors"
	"fmt"
)

// Default retrieval parameters.
const (
	DefaultTopK           = 4
	DefaultScoreThreshold = 0.5
)

// SearchParams configures a retrieval query.
type SearchParams struct {
	// TopK is the maximum number of knowledge-base matches.
	TopK int `json:"top_k"`

	// ScoreThreshold is the minimum cosine similarity, in [0, 1].
	ScoreThreshold float64 `json:"score_threshold"`

	// ExpandContext enables the web-search branch.
	ExpandContext bool `json:"expand_context"`

	// Language selects the answer template.
	Language Language `json:"language"`
}

// DefaultSearchParams returns the retrieval defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		TopK:           DefaultTopK,
		ScoreThreshold: DefaultScoreThreshold,
		ExpandContext:  true,
		Language:       LanguageItalian,
	}
}

// Validate checks every field and reports all problems at once.
func (p SearchParams) Validate() error {
	var errs []error
	if p.TopK < 1 {
		errs = append(errs, fmt.Errorf("top_k must be at least 1, got %d", p.TopK))
	}
	if p.ScoreThreshold < 0 || p.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("score_threshold must be in [0, 1], got %g", p.ScoreThreshold))
	}
	if !p.Language.IsValid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, p.Language))
	}
	if len(errs) > 0 {
		return &ConfigurationError{Op: "validate search params", Err: errors.Join(errs...)}
	}
	return nil
}

// ContextBundle is the per-query context handed to the generation step.
// It is built fresh for every query and never persisted.
type ContextBundle struct {
	// Query is the raw user question.
	Query string `json:"query"`

	// KBContext is the ranked chunk contents joined together.
	KBContext string `json:"kb_context"`

	// WebContext is the web snippet, empty when expansion is off or failed.
	WebContext string `json:"web_context"`

	// Matches are the knowledge-base hits in ranked order.
	Matches []ScoredChunk `json:"matches,omitempty"`
}

// Answer is the generated response to a query.
type Answer struct {
	// Text is the raw model output, unmodified.
	Text string `json:"text"`

	// Language is the template language used.
	Language Language `json:"language"`

	// Model is the generation model name.
	Model string `json:"model,omitempty"`

	// Bundle is the context the answer was generated from.
	Bundle *ContextBundle `json:"context,omitempty"`
}
