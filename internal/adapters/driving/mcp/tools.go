package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// QueryInput is the input schema shared by the ask and retrieve tools.
type QueryInput struct {
	Query     string   `json:"query" jsonschema:"the question to answer"`
	Language  string   `json:"language,omitempty" jsonschema:"answer language: it or en (default it)"`
	TopK      int      `json:"top_k,omitempty" jsonschema:"maximum number of knowledge-base chunks (default 4)"`
	Threshold *float64 `json:"score_threshold,omitempty" jsonschema:"minimum cosine similarity in [0,1] (default 0.5)"`
	NoWeb     bool     `json:"no_web,omitempty" jsonschema:"skip web context expansion"`
}

// MatchOutput is one knowledge-base chunk used as context.
type MatchOutput struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
	Content string  `json:"content,omitempty"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string        `json:"answer"`
	Language string        `json:"language"`
	Model    string        `json:"model"`
	Sources  []MatchOutput `json:"sources"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	KBContext  string        `json:"kb_context"`
	WebContext string        `json:"web_context"`
	Matches    []MatchOutput `json:"matches"`
	Count      int           `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed Wikipedia pages, optionally expanded with web context",
	}, s.handleAsk)

	if s.ports.Retrieval != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "retrieve",
			Description: "Return the knowledge-base and web context for a question without generating an answer",
		}, s.handleRetrieve)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, AskOutput, error) {
	params, err := s.params(input)
	if err != nil {
		return nil, AskOutput{}, err
	}

	answer, err := s.ports.Answer.Ask(ctx, input.Query, params)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:   answer.Text,
		Language: answer.Language.String(),
		Model:    answer.Model,
		Sources:  []MatchOutput{},
	}
	if answer.Bundle != nil {
		output.Sources = matches(answer.Bundle.Matches, false)
	}
	return nil, output, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if s.ports.Retrieval == nil {
		return nil, RetrieveOutput{}, errors.New("retrieval service not configured")
	}
	params, err := s.params(input)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	bundle, err := s.ports.Retrieval.Retrieve(ctx, input.Query, params)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	return nil, RetrieveOutput{
		KBContext:  bundle.KBContext,
		WebContext: bundle.WebContext,
		Matches:    matches(bundle.Matches, true),
		Count:      len(bundle.Matches),
	}, nil
}

// params applies the tool input to the configured defaults.
func (s *Server) params(input QueryInput) (domain.SearchParams, error) {
	p := s.ports.defaults()
	if input.Language != "" {
		lang, err := domain.ParseLanguage(input.Language)
		if err != nil {
			return p, err
		}
		p.Language = lang
	}
	if input.TopK > 0 {
		p.TopK = input.TopK
	}
	if input.Threshold != nil {
		p.ScoreThreshold = *input.Threshold
	}
	if input.NoWeb {
		p.ExpandContext = false
	}
	return p, p.Validate()
}

func matches(hits []domain.ScoredChunk, withContent bool) []MatchOutput {
	out := make([]MatchOutput, len(hits))
	for i, h := range hits {
		out[i] = MatchOutput{
			Title: h.Chunk.Payload.Title,
			URL:   h.Chunk.Payload.URL,
			Score: h.Score,
		}
		if withContent {
			out[i].Content = h.Chunk.Payload.Content
		}
	}
	return out
}
