package qdrant

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wikirag/internal/adapters/driven/vectorindex/indextest"
	"github.com/custodia-labs/wikirag/internal/adapters/driven/vectorindex/memory"
	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

// fakeQdrant emulates the subset of the Qdrant REST API the client uses,
// backed by the in-memory index.
type fakeQdrant struct {
	idx    *memory.Index
	apiKey string
	status string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.apiKey != "" && r.Header.Get("api-key") != f.apiKey {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "collections" {
		writeError(w, http.StatusNotFound, "no route")
		return
	}
	name := parts[1]
	ctx := r.Context()

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		c, err := f.idx.Collection(ctx, name)
		if err != nil {
			writeError(w, http.StatusNotFound, "Collection `"+name+"` doesn't exist!")
			return
		}
		status := string(c.Status)
		if f.status != "" {
			status = f.status
		}
		writeResult(w, map[string]any{
			"status":       status,
			"points_count": c.PointCount,
			"config": map[string]any{"params": map[string]any{
				"vectors": map[string]any{"size": c.Dimension, "distance": string(c.Distance)},
			}},
		})

	case len(parts) == 2 && r.Method == http.MethodPut:
		var req struct {
			Vectors vectorParams `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if err := f.idx.CreateCollection(ctx, name, req.Vectors.Size, domain.Distance(req.Vectors.Distance)); err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeResult(w, true)

	case len(parts) == 3 && parts[2] == "points" && r.Method == http.MethodPut:
		var req struct {
			Points []pointStruct `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		chunks := make([]domain.Chunk, len(req.Points))
		for i, p := range req.Points {
			chunks[i] = domain.Chunk{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
		}
		if err := f.idx.Upsert(ctx, name, chunks); err != nil {
			code := http.StatusBadRequest
			if errors.Is(err, domain.ErrNotFound) {
				code = http.StatusNotFound
			}
			writeError(w, code, err.Error())
			return
		}
		writeResult(w, map[string]any{"operation_id": 1, "status": "completed"})

	case len(parts) == 4 && parts[3] == "search":
		var req searchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		hits, err := f.idx.Query(ctx, name, req.Vector, req.Limit, req.ScoreThreshold)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		out := make([]map[string]any, len(hits))
		for i, h := range hits {
			out[i] = map[string]any{
				"id":      h.Chunk.ID,
				"version": 0,
				"score":   h.Score,
				"payload": h.Chunk.Payload,
				"vector":  h.Chunk.Vector,
			}
		}
		writeResult(w, out)

	case len(parts) == 4 && parts[3] == "count":
		n, err := f.idx.Count(ctx, name)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeResult(w, map[string]any{"count": n})

	default:
		writeError(w, http.StatusNotFound, "no route")
	}
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "status": "ok", "time": 0.001})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": map[string]string{"error": msg}, "time": 0.001})
}

func newFake(t *testing.T, f *fakeQdrant) *httptest.Server {
	t.Helper()
	if f.idx == nil {
		f.idx = memory.NewIndex()
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

func TestIndex(t *testing.T) {
	indextest.Run(t, func(t *testing.T) driven.VectorIndex {
		srv := newFake(t, &fakeQdrant{})
		idx := NewIndex(Config{URL: srv.URL + "/"})
		t.Cleanup(func() { idx.Close() })
		return idx
	})
}

func TestIndex_APIKey(t *testing.T) {
	srv := newFake(t, &fakeQdrant{apiKey: "secret"})
	ctx := t.Context()

	err := NewIndex(Config{URL: srv.URL}).CreateCollection(ctx, "c", 2, domain.DistanceCosine)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qdrant error (status 401)")

	idx := NewIndex(Config{URL: srv.URL, APIKey: "secret"})
	require.NoError(t, idx.CreateCollection(ctx, "c", 2, domain.DistanceCosine))
	n, err := idx.Count(ctx, "c")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndex_CollectionStatus(t *testing.T) {
	fake := &fakeQdrant{status: "yellow"}
	srv := newFake(t, fake)
	ctx := t.Context()

	idx := NewIndex(Config{URL: srv.URL})
	require.NoError(t, idx.CreateCollection(ctx, "wikipedia", 384, domain.DistanceCosine))

	info, err := idx.Collection(ctx, "wikipedia")
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionStatusYellow, info.Status)
	assert.False(t, info.IsHealthy())
	assert.Equal(t, 384, info.Dimension)
}

func TestIndex_UpsertUnknownCollection(t *testing.T) {
	srv := newFake(t, &fakeQdrant{})

	err := NewIndex(Config{URL: srv.URL}).Upsert(t.Context(), "missing", []domain.Chunk{
		indextest.Chunk("a", "a", 1, 0),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPointID(t *testing.T) {
	assert.Equal(t, "4f1c1c0e-7d38-4c56-9d4e-1f7c4b0f9a11", pointID(json.RawMessage(`"4f1c1c0e-7d38-4c56-9d4e-1f7c4b0f9a11"`)))
	assert.Equal(t, "42", pointID(json.RawMessage(`42`)))
}
