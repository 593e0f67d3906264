package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driving"
)

// execute runs the root command with injected services and returns the
// combined output.
func execute(t *testing.T, s *Services, args ...string) (string, error) {
	t.Helper()

	SetServices(s)
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		SetServices(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so runs do not leak into
// each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func olympicsChunk() domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			ID:     "c1",
			Vector: []float32{0.1, 0.2},
			Payload: domain.ChunkPayload{
				Content:  "I primi Giochi olimpici moderni si tennero ad Atene nel 1896.",
				Language: domain.LanguageItalian,
				Title:    "Giochi olimpici",
				URL:      "https://it.wikipedia.org/wiki/Giochi_olimpici",
			},
		},
		Score: 0.91,
	}
}

func olympicsBundle() *domain.ContextBundle {
	hit := olympicsChunk()
	return &domain.ContextBundle{
		Query:      "Dove si sono svolte le prime Olimpiadi?",
		KBContext:  hit.Chunk.Payload.Content,
		WebContext: "Atene, Grecia",
		Matches:    []domain.ScoredChunk{hit},
	}
}

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

type mockIngestionService struct {
	summary *domain.IngestionSummary
	err     error

	refs   []string
	inDir  string
	outDir string
	calls  []string
}

func (m *mockIngestionService) Acquire(_ context.Context, refs []string, outDir string) (*domain.IngestionSummary, error) {
	m.calls = append(m.calls, "acquire")
	m.refs, m.outDir = refs, outDir
	return m.result("acquire")
}

func (m *mockIngestionService) Chunk(_ context.Context, inDir, outDir string) (*domain.IngestionSummary, error) {
	m.calls = append(m.calls, "chunk")
	m.inDir, m.outDir = inDir, outDir
	return m.result("chunk")
}

func (m *mockIngestionService) Load(_ context.Context, inDir string) (*domain.IngestionSummary, error) {
	m.calls = append(m.calls, "load")
	m.inDir = inDir
	return m.result("load")
}

func (m *mockIngestionService) Ingest(_ context.Context, _ []domain.Document) (*domain.IngestionSummary, error) {
	m.calls = append(m.calls, "ingest")
	return m.result("ingest")
}

func (m *mockIngestionService) Run(_ context.Context, refs []string) (*domain.IngestionSummary, error) {
	m.calls = append(m.calls, "run")
	m.refs = refs
	return m.result("run")
}

func (m *mockIngestionService) SetProgress(driving.ProgressFunc) {}

func (m *mockIngestionService) result(stage string) (*domain.IngestionSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.summary != nil {
		return m.summary, nil
	}
	return domain.NewIngestionSummary(stage), nil
}

type mockCollectionService struct {
	collection *domain.Collection
	err        error
	ensured    bool
}

func (m *mockCollectionService) Ensure(context.Context) (*domain.Collection, error) {
	m.ensured = true
	return m.collection, m.err
}

func (m *mockCollectionService) Validate(context.Context) (*domain.Collection, error) {
	return m.collection, m.err
}

func (m *mockCollectionService) Status(context.Context) (*domain.Collection, error) {
	return m.collection, m.err
}

type mockSettingsService struct {
	entries  []driving.SettingEntry
	getErr   error
	setErr   error
	checkErr error
	set      map[string]string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := domain.DefaultAppSettings()
	return &s, nil
}

func (m *mockSettingsService) Save(*domain.AppSettings) error { return nil }

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.set == nil {
		m.set = map[string]string{}
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key
	}
	return keys
}

func (m *mockSettingsService) Entries() ([]driving.SettingEntry, error) {
	return m.entries, nil
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) CheckEmbedding(context.Context) error { return m.checkErr }

func (m *mockSettingsService) CheckLLM(context.Context) error { return m.checkErr }

// captureCommand returns a bare command whose output goes to the buffer.
func captureCommand() (*cobra.Command, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd, buf
}
