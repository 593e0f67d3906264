package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	collectionURI = "wikirag://collection"
	promptPrefix  = "wikirag://prompts/"
)

// collectionView is the JSON body of the collection resource.
type collectionView struct {
	Name      string `json:"name"`
	Dimension int    `json:"vector_dimension"`
	Distance  string `json:"distance_metric"`
	Status    string `json:"status"`
	Points    int    `json:"point_count"`
	Healthy   bool   `json:"healthy"`
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         collectionURI,
		Name:        "collection",
		Description: "Name, dimension, distance, health and size of the vector collection",
		MIMEType:    "application/json",
	}, s.readCollection)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: promptPrefix + "{name}",
		Name:        "prompt",
		Description: "Answer prompt template (answer_it, answer_en, answer_it_concise)",
		MIMEType:    "text/plain",
	}, s.readPrompt)
}

func (s *Server) readCollection(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	if s.ports.Collections == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	info, err := s.ports.Collections.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("collection status: %w", err)
	}

	body, err := json.MarshalIndent(collectionView{
		Name:      info.Name,
		Dimension: info.Dimension,
		Distance:  string(info.Distance),
		Status:    string(info.Status),
		Points:    info.PointCount,
		Healthy:   info.IsHealthy(),
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return contents(uri, "application/json", string(body)), nil
}

// readPrompt answers not-found for unknown names and for a store that
// cannot load them.
func (s *Server) readPrompt(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	name := extractPromptName(uri)
	if s.ports.Prompts == nil || name == "" {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	text, err := s.ports.Prompts.Load(name)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	return contents(uri, "text/plain", text), nil
}

func contents(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeType, Text: text}},
	}
}

// extractPromptName returns "" unless uri is wikirag://prompts/<name>.
func extractPromptName(uri string) string {
	name, ok := strings.CutPrefix(uri, promptPrefix)
	if !ok || strings.Contains(name, "/") {
		return ""
	}
	return name
}
