// Package qdrant provides a driven.VectorIndex backed by the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/vectormath"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultURL     = "http://localhost:6333"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the Qdrant client.
type Config struct {
	// URL is the Qdrant base URL (default: http://localhost:6333).
	URL string

	// APIKey is sent in the api-key header when set.
	APIKey string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Index talks to a Qdrant server.
type Index struct {
	client  *http.Client
	baseURL string
	apiKey  string

	// dims caches collection dimensions so upserts can be checked locally.
	dims sync.Map
}

// NewIndex creates a Qdrant client. No request is made until first use.
func NewIndex(cfg Config) *Index {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Index{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
	}
}

type vectorParams struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type collectionInfo struct {
	Status      string `json:"status"`
	PointsCount *int   `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors vectorParams `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

type pointStruct struct {
	ID      string              `json:"id"`
	Vector  []float32           `json:"vector"`
	Payload domain.ChunkPayload `json:"payload"`
}

type scoredPoint struct {
	ID      json.RawMessage     `json:"id"`
	Score   float64             `json:"score"`
	Payload domain.ChunkPayload `json:"payload"`
	Vector  []float32           `json:"vector"`
}

type searchRequest struct {
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	ScoreThreshold float64   `json:"score_threshold"`
	WithPayload    bool      `json:"with_payload"`
	WithVector     bool      `json:"with_vector"`
}

// envelope is the common Qdrant response wrapper.
type envelope struct {
	Result json.RawMessage `json:"result"`
	Status any             `json:"status"`
}

// Collection describes a collection.
func (x *Index) Collection(ctx context.Context, name string) (*domain.Collection, error) {
	var info collectionInfo
	if err := x.do(ctx, http.MethodGet, collectionPath(name), nil, &info); err != nil {
		return nil, fmt.Errorf("get collection %s: %w", name, err)
	}

	c := &domain.Collection{
		Name:      name,
		Dimension: info.Config.Params.Vectors.Size,
		Distance:  domain.ParseDistance(info.Config.Params.Vectors.Distance),
		Status:    domain.CollectionStatus(strings.ToLower(info.Status)),
	}
	if info.PointsCount != nil {
		c.PointCount = *info.PointsCount
	}
	x.dims.Store(name, c.Dimension)
	return c, nil
}

// CreateCollection creates an empty collection.
func (x *Index) CreateCollection(ctx context.Context, name string, dimension int, distance domain.Distance) error {
	if name == "" || dimension <= 0 {
		return fmt.Errorf("create collection: %w: name and positive dimension required", domain.ErrInvalidInput)
	}
	body := map[string]any{
		"vectors": vectorParams{Size: dimension, Distance: string(distance)},
	}
	if err := x.do(ctx, http.MethodPut, collectionPath(name), body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	x.dims.Store(name, dimension)
	return nil
}

// Upsert inserts or replaces points and waits for the write to be applied.
func (x *Index) Upsert(ctx context.Context, name string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	dim, err := x.dimension(ctx, name)
	if err != nil {
		return err
	}
	check := domain.Collection{Name: name, Dimension: dim}

	points := make([]pointStruct, len(chunks))
	for i, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("upsert into %s: %w: chunk without id", name, domain.ErrInvalidInput)
		}
		if err := check.CheckDimension(len(chunk.Vector)); err != nil {
			return err
		}
		points[i] = pointStruct{ID: chunk.ID, Vector: chunk.Vector, Payload: chunk.Payload}
	}

	body := map[string]any{"points": points}
	if err := x.do(ctx, http.MethodPut, collectionPath(name)+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("upsert into %s: %w", name, err)
	}
	return nil
}

// Query runs a server-side similarity search.
func (x *Index) Query(ctx context.Context, name string, vector []float32, topK int, threshold float64) ([]domain.ScoredChunk, error) {
	dim, err := x.dimension(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := (domain.Collection{Name: name, Dimension: dim}).CheckDimension(len(vector)); err != nil {
		return nil, err
	}

	req := searchRequest{
		Vector:         vector,
		Limit:          topK,
		ScoreThreshold: threshold,
		WithPayload:    true,
		WithVector:     true,
	}
	var points []scoredPoint
	if err := x.do(ctx, http.MethodPost, collectionPath(name)+"/points/search", req, &points); err != nil {
		return nil, fmt.Errorf("search %s: %w", name, err)
	}

	hits := make([]domain.ScoredChunk, 0, len(points))
	for _, p := range points {
		hits = append(hits, domain.ScoredChunk{
			Chunk: domain.Chunk{
				ID:      pointID(p.ID),
				Vector:  p.Vector,
				Payload: p.Payload,
			},
			Score: p.Score,
		})
	}
	// The server already filters and orders; Rank re-applies the contract.
	return vectormath.Rank(hits, topK, threshold), nil
}

// Count returns the exact number of points in a collection.
func (x *Index) Count(ctx context.Context, name string) (int, error) {
	var res struct {
		Count int `json:"count"`
	}
	body := map[string]any{"exact": true}
	if err := x.do(ctx, http.MethodPost, collectionPath(name)+"/points/count", body, &res); err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return res.Count, nil
}

// Close releases resources.
func (x *Index) Close() error {
	x.client.CloseIdleConnections()
	return nil
}

func (x *Index) dimension(ctx context.Context, name string) (int, error) {
	if v, ok := x.dims.Load(name); ok {
		return v.(int), nil
	}
	c, err := x.Collection(ctx, name)
	if err != nil {
		return 0, err
	}
	return c.Dimension, nil
}

// do sends a JSON request and decodes the "result" field into out.
// A 404 is reported as domain.ErrNotFound.
func (x *Index) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, strings.TrimSpace(string(data)))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("qdrant error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Result) == 0 {
		return errors.New("decode response: missing result")
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

// pointID renders a Qdrant point id, which is either a UUID string or an
// unsigned integer.
func pointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
