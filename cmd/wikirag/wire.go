package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/wikirag/internal/adapters/driven/ai"
	"github.com/custodia-labs/wikirag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/wikirag/internal/adapters/driven/records/jsonfs"
	"github.com/custodia-labs/wikirag/internal/adapters/driven/source/filesystem"
	"github.com/custodia-labs/wikirag/internal/adapters/driven/source/wikipedia"
	"github.com/custodia-labs/wikirag/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/wikirag/internal/adapters/driven/websearch/duckduckgo"
	"github.com/custodia-labs/wikirag/internal/adapters/driving/cli"
	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/core/services"
	"github.com/custodia-labs/wikirag/internal/logger"
	"github.com/custodia-labs/wikirag/internal/normalisers"
	"github.com/custodia-labs/wikirag/internal/normalisers/html"
	"github.com/custodia-labs/wikirag/internal/normalisers/markdown"
	"github.com/custodia-labs/wikirag/internal/normalisers/pdf"
	"github.com/custodia-labs/wikirag/internal/normalisers/plaintext"
	"github.com/custodia-labs/wikirag/internal/normalisers/wikitext"
	"github.com/custodia-labs/wikirag/internal/postprocessors"
	"github.com/custodia-labs/wikirag/internal/postprocessors/embedder"
)

// Files kept under the configuration directory.
const (
	embeddingCacheFile = "embeddings.db"
	dataDirName        = "data"
	promptDirName      = "prompts"
)

// build wires the adapters into the core services. Nothing is contacted
// here; providers are reached on first use.
func build(opts cli.BootstrapOptions) (*cli.Services, error) {
	dir := opts.ConfigDir
	if dir == "" {
		var err error
		if dir, err = file.DefaultDir(); err != nil {
			return nil, err
		}
	}

	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}
	settingsService := services.NewSettingsService(store, ai.NewProbe(ai.DefaultProbeTimeout))
	out := &cli.Services{Settings: settingsService}
	if opts.SettingsOnly {
		return out, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}
	if opts.Override != nil {
		if err := opts.Override(settings); err != nil {
			return nil, err
		}
		if err := settings.Validate(); err != nil {
			return nil, err
		}
	}
	if settings.Embedding.CachePath == "" {
		settings.Embedding.CachePath = filepath.Join(dir, embeddingCacheFile)
	}
	if settings.VectorStore.DataDir == "" {
		settings.VectorStore.DataDir = filepath.Join(dir, dataDirName)
	}
	logger.Debug("Vector store: %s %s, collection %s",
		settings.VectorStore.Backend, settings.VectorStore.URL, settings.VectorStore.Collection)

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*cli.Services, error) {
		_ = closeAll()
		return nil, err
	}

	embedding, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return fail(fmt.Errorf("create embedding service: %w", err))
	}
	if embedding == nil {
		return fail(&domain.ConfigurationError{
			Op: "create embedding service",
			Err: fmt.Errorf("%w: provider %q is not configured (set embedding.api_key?)",
				domain.ErrEmbeddingUnavailable, settings.Embedding.Provider),
		})
	}
	closers = append(closers, embedding.Close)

	index, err := vectorindex.Open(settings.VectorStore)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, index.Close)

	dimension := settings.VectorStore.Dimensions
	if dimension == 0 {
		dimension = embedding.Dimensions()
	}
	collection := settings.VectorStore.Collection
	collections := services.NewCollectionManager(index, collection, dimension)

	llm, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		return fail(fmt.Errorf("create llm service: %w", err))
	}
	if llm != nil {
		closers = append(closers, llm.Close)
	} else {
		logger.Debug("LLM provider %s is not configured", settings.LLM.Provider)
	}

	prompts, err := file.NewPromptStore(filepath.Join(dir, promptDirName))
	if err != nil {
		return fail(err)
	}

	web, err := newWebSearcher(settings)
	if err != nil {
		return fail(err)
	}

	retrieval := services.NewRetrievalOrchestrator(
		collections, index, embedding, web, collection, settings.Web.Timeout)
	synthesizer := services.NewAnswerSynthesizer(llm, prompts, settings.LLM.Generation)
	for lang, name := range opts.Templates {
		synthesizer.SetTemplate(lang, name)
	}

	processing, err := postprocessors.NewIngestPipeline(
		embedding, settings.Chunking, embedder.DefaultBatchSize, dimension)
	if err != nil {
		return fail(err)
	}
	var cleaner driven.TextCleaner
	if settings.Acquisition.Clean {
		cleaner = wikitext.New(wikitext.WithStopwords(settings.Acquisition.RemoveStopwords))
	}

	out.Answer = services.NewAnswerService(retrieval, synthesizer)
	out.Retrieval = retrieval
	out.Collections = collections
	out.Prompts = prompts
	out.Search = settings.Search
	out.Ingestion = services.NewIngestionPipeline(services.IngestionConfig{
		Sources: []driven.DocumentSource{
			wikipedia.New(wikipedia.Config{UserAgent: settings.Acquisition.UserAgent}),
			filesystem.New(filesystem.Config{}),
		},
		Normaliser:   normalisers.NewRegistry(html.New(), markdown.New(), pdf.New(), plaintext.New()),
		Cleaner:      cleaner,
		Records:      jsonfs.New(),
		Processing:   processing,
		Embedding:    embedding,
		Index:        index,
		Collections:  collections,
		Collection:   collection,
		Workers:      settings.Ingest.Workers,
		Language:     settings.Acquisition.Language,
		DocumentsDir: opts.DocumentsDir,
	})
	out.Close = closeAll
	return out, nil
}

// newWebSearcher returns nil when web expansion has no provider.
func newWebSearcher(settings *domain.AppSettings) (driven.WebSearcher, error) {
	switch settings.Web.Provider {
	case "", "none":
		return nil, nil
	case "duckduckgo":
		return duckduckgo.New(duckduckgo.Config{
			Region:        settings.Web.Region,
			UserAgent:     settings.Acquisition.UserAgent,
			Timeout:       settings.Web.Timeout,
			RatePerSecond: settings.Web.RatePerSecond,
		}), nil
	default:
		return nil, &domain.ConfigurationError{
			Op:  "create web searcher",
			Err: fmt.Errorf("%w: web provider %q", domain.ErrUnsupportedType, settings.Web.Provider),
		}
	}
}
