package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/custodia-labs/wikirag/internal/adapters/driven/vectorindex/memory"
	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

const testCollection = "wikipedia"

// letterEmbedder maps text to a letter histogram. Components are never
// negative, so any two non-empty texts score at least zero under cosine.
type letterEmbedder struct {
	dims  int
	err   error
	calls atomic.Int32
}

func newLetterEmbedder(dims int) *letterEmbedder {
	return &letterEmbedder{dims: dims}
}

func (e *letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *letterEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			v[int(r)%e.dims]++
		}
	}
	return v
}

func (e *letterEmbedder) Dimensions() int            { return e.dims }
func (e *letterEmbedder) ModelName() string          { return "letters" }
func (e *letterEmbedder) Ping(context.Context) error { return nil }
func (e *letterEmbedder) Close() error               { return nil }

// spyIndex wraps the in-memory index and counts similarity queries.
type spyIndex struct {
	*memory.Index
	queries  atomic.Int32
	queryErr error
}

func newSpyIndex() *spyIndex {
	return &spyIndex{Index: memory.NewIndex()}
}

func (x *spyIndex) Query(
	ctx context.Context, name string, vector []float32, topK int, threshold float64,
) ([]domain.ScoredChunk, error) {
	x.queries.Add(1)
	if x.queryErr != nil {
		return nil, x.queryErr
	}
	return x.Index.Query(ctx, name, vector, topK, threshold)
}

// seed creates the collection and stores one chunk per content.
func (x *spyIndex) seed(ctx context.Context, e *letterEmbedder, contents ...string) error {
	if err := x.CreateCollection(ctx, testCollection, e.dims, domain.DistanceCosine); err != nil {
		return err
	}
	chunks := make([]domain.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = domain.Chunk{
			ID:      "chunk-" + string(rune('a'+i)),
			Vector:  e.vector(c),
			Payload: domain.ChunkPayload{Content: c, Language: domain.LanguageItalian, Title: "Test"},
		}
	}
	return x.Upsert(ctx, testCollection, chunks)
}

// stubWeb is a web searcher with configurable latency and failure modes.
type stubWeb struct {
	text   string
	err    error
	delay  time.Duration
	panics bool
	calls  atomic.Int32
}

func (w *stubWeb) Search(ctx context.Context, _ string) (string, error) {
	w.calls.Add(1)
	if w.panics {
		panic("search backend exploded")
	}
	if w.delay > 0 {
		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return w.text, w.err
}

func (w *stubWeb) Name() string { return "stub" }

// stubLLM records prompts and replies with a fixed text.
type stubLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	opts    []driven.GenerateOptions
}

func (l *stubLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	l.opts = append(l.opts, opts)
	return l.reply, l.err
}

func (l *stubLLM) ModelName() string          { return "stub-llm" }
func (l *stubLLM) Ping(context.Context) error { return nil }
func (l *stubLLM) Close() error               { return nil }

// stubPrompts serves templates from a map.
type stubPrompts map[string]string

func (p stubPrompts) Load(name string) (string, error) {
	t, ok := p[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return t, nil
}

func (p stubPrompts) Reload() {}

// stubSource serves raw documents for references with a prefix.
type stubSource struct {
	prefix string
	docs   map[string][]domain.RawDocument
	errs   map[string]error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Accepts(ref string) bool {
	return strings.HasPrefix(ref, s.prefix)
}

func (s *stubSource) Fetch(_ context.Context, ref string, lang domain.Language) ([]domain.RawDocument, error) {
	if err := s.errs[ref]; err != nil {
		return nil, err
	}
	docs, ok := s.docs[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.RawDocument, len(docs))
	for i, d := range docs {
		if d.Language == "" {
			d.Language = lang
		}
		out[i] = d
	}
	return out, nil
}

func rawText(title, content string) domain.RawDocument {
	return domain.RawDocument{
		URI:      "https://it.wikipedia.org/wiki/" + strings.ReplaceAll(title, " ", "_"),
		MIMEType: "text/plain",
		Content:  []byte(content),
		Metadata: map[string]any{"title": title},
	}
}
