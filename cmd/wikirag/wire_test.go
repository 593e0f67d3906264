package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wikirag/internal/adapters/driving/cli"
	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// offline switches to backends that need no running server.
func offline(s *domain.AppSettings) error {
	s.VectorStore.Backend = domain.VectorBackendMemory
	s.Embedding.Provider = domain.AIProviderHash
	s.Embedding.Model = "hash-384"
	s.Embedding.Cache = true
	s.VectorStore.Dimensions = 384
	return nil
}

func TestBuild_SettingsOnly(t *testing.T) {
	dir := t.TempDir()

	out, err := build(cli.BootstrapOptions{ConfigDir: dir, SettingsOnly: true})

	require.NoError(t, err)
	require.NotNil(t, out.Settings)
	assert.Nil(t, out.Answer)
	assert.Nil(t, out.Ingestion)
	assert.Nil(t, out.Close)
}

func TestBuild_OfflineStack(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	out, err := build(cli.BootstrapOptions{ConfigDir: dir, Override: offline})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, out.Close()) })

	require.NotNil(t, out.Answer)
	require.NotNil(t, out.Retrieval)
	require.NotNil(t, out.Collections)
	require.NotNil(t, out.Ingestion)
	require.NotNil(t, out.Prompts)
	assert.Equal(t, domain.DefaultSearchParams(), out.Search)
	assert.FileExists(t, filepath.Join(dir, embeddingCacheFile))

	collection, err := out.Collections.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, 384, collection.Dimension)
	assert.Equal(t, domain.DistanceCosine, collection.Distance)

	content := "I primi Giochi olimpici moderni si tennero ad Atene nel 1896."
	summary, err := out.Ingestion.Ingest(ctx, []domain.Document{{
		Title:    "Giochi olimpici",
		URL:      "https://it.wikipedia.org/wiki/Giochi_olimpici",
		Language: domain.LanguageItalian,
		Content:  content,
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)

	params := domain.DefaultSearchParams()
	params.ExpandContext = false
	params.ScoreThreshold = 0
	bundle, err := out.Retrieval.Retrieve(ctx, content, params)
	require.NoError(t, err)
	require.NotEmpty(t, bundle.Matches)
	assert.Equal(t, content, bundle.Matches[0].Chunk.Payload.Content)
	assert.InDelta(t, 1.0, bundle.Matches[0].Score, 1e-4)
	assert.Empty(t, bundle.WebContext)
}

func TestBuild_OverrideErrors(t *testing.T) {
	t.Run("override error", func(t *testing.T) {
		_, err := build(cli.BootstrapOptions{
			ConfigDir: t.TempDir(),
			Override: func(*domain.AppSettings) error {
				return &domain.ConfigurationError{Op: "parse --language", Err: domain.ErrUnsupportedLanguage}
			},
		})
		assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
	})

	t.Run("override produces invalid settings", func(t *testing.T) {
		_, err := build(cli.BootstrapOptions{
			ConfigDir: t.TempDir(),
			Override: func(s *domain.AppSettings) error {
				s.Chunking.Overlap = s.Chunking.Size
				return nil
			},
		})
		assert.True(t, domain.IsConfigurationError(err))
	})

	t.Run("unknown web provider", func(t *testing.T) {
		_, err := build(cli.BootstrapOptions{
			ConfigDir: t.TempDir(),
			Override: func(s *domain.AppSettings) error {
				_ = offline(s)
				s.Web.Provider = "bing"
				return nil
			},
		})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("embedding provider without key", func(t *testing.T) {
		_, err := build(cli.BootstrapOptions{
			ConfigDir: t.TempDir(),
			Override: func(s *domain.AppSettings) error {
				_ = offline(s)
				s.Embedding.Provider = domain.AIProviderOpenAI
				s.Embedding.APIKey = ""
				return nil
			},
		})
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestBuild_StoredSettings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[search]
top_k = 7
`), 0o600))

	out, err := build(cli.BootstrapOptions{ConfigDir: dir, Override: offline})
	require.NoError(t, err)
	t.Cleanup(func() { _ = out.Close() })

	assert.Equal(t, 7, out.Search.TopK)
}

func TestNewWebSearcher(t *testing.T) {
	s := domain.DefaultAppSettings()

	web, err := newWebSearcher(&s)
	require.NoError(t, err)
	require.NotNil(t, web)
	assert.Equal(t, "duckduckgo", web.Name())

	s.Web.Provider = "none"
	web, err = newWebSearcher(&s)
	require.NoError(t, err)
	assert.Nil(t, web)
}
