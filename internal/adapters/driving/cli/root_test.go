package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wikirag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// withBootstrap installs fn for the duration of the test.
func withBootstrap(t *testing.T, fn BootstrapFunc) {
	t.Helper()
	previous := bootstrap
	SetBootstrap(fn)
	t.Cleanup(func() {
		SetBootstrap(previous)
		services = nil
	})
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "wikirag", rootCmd.Use)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config-dir"))
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{
		"acquire", "chunk", "load", "ingest", "ask", "retrieve", "collection", "settings", "mcp", "version",
	} {
		assert.True(t, names[want], want)
	}
}

func TestSetup_BootstrapsWithCommandOptions(t *testing.T) {
	var got BootstrapOptions
	ingestion := &mockIngestionService{}
	withBootstrap(t, func(opts BootstrapOptions) (*Services, error) {
		got = opts
		return &Services{Ingestion: ingestion}, nil
	})

	_, err := execute(t, nil, "--config-dir", "/tmp/wikirag-test", "chunk", "--chunk-size", "120")

	require.NoError(t, err)
	assert.Equal(t, []string{"chunk"}, ingestion.calls)
	assert.Equal(t, "/tmp/wikirag-test", got.ConfigDir)
	assert.False(t, got.SettingsOnly)
	require.NotNil(t, got.Override)

	s := domain.DefaultAppSettings()
	require.NoError(t, got.Override(&s))
	assert.Equal(t, 120, s.Chunking.Size)
	assert.Equal(t, domain.DefaultChunkOverlap, s.Chunking.Overlap)
}

func TestSetup_SettingsOnly(t *testing.T) {
	var got BootstrapOptions
	withBootstrap(t, func(opts BootstrapOptions) (*Services, error) {
		got = opts
		return &Services{Settings: &mockSettingsService{}}, nil
	})

	_, err := execute(t, nil, "settings", "keys")

	require.NoError(t, err)
	assert.True(t, got.SettingsOnly)
	assert.Nil(t, got.Override)
}

func TestSetup_IngestOptions(t *testing.T) {
	var got BootstrapOptions
	withBootstrap(t, func(opts BootstrapOptions) (*Services, error) {
		got = opts
		return &Services{Ingestion: &mockIngestionService{}}, nil
	})

	_, err := execute(t, nil, "ingest", "--output-docs", "docs", "--collection", "enwiki", "wikipedia:Roma")

	require.NoError(t, err)
	assert.Equal(t, "docs", got.DocumentsDir)
	s := domain.DefaultAppSettings()
	require.NoError(t, got.Override(&s))
	assert.Equal(t, "enwiki", s.VectorStore.Collection)
}

func TestSetup_BootstrapError(t *testing.T) {
	withBootstrap(t, func(BootstrapOptions) (*Services, error) {
		return nil, domain.ErrVectorIndexUnavailable
	})

	_, err := execute(t, nil, "collection", "status")

	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestSetup_InvalidFlagFailsBootstrap(t *testing.T) {
	called := false
	withBootstrap(t, func(opts BootstrapOptions) (*Services, error) {
		called = true
		s := domain.DefaultAppSettings()
		if err := opts.Override(&s); err != nil {
			return nil, err
		}
		return &Services{Ingestion: &mockIngestionService{}}, nil
	})

	_, err := execute(t, nil, "acquire", "--language", "de", "wikipedia:Roma")

	assert.True(t, called)
	assert.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
}

func TestSetup_NoBootstrap(t *testing.T) {
	withBootstrap(t, nil)

	_, err := execute(t, nil, "collection", "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "services not configured")
}

func TestSetup_VersionAndHelpSkipBootstrap(t *testing.T) {
	withBootstrap(t, func(BootstrapOptions) (*Services, error) {
		return nil, errors.New("must not be called")
	})

	out, err := execute(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "wikirag version")

	_, err = execute(t, nil, "help")
	assert.NoError(t, err)
}

func TestCloseServices(t *testing.T) {
	closed := 0
	services = &Services{Close: func() error {
		closed++
		return errors.New("already closed")
	}}
	injected = false
	buf := new(bytes.Buffer)
	captureLogs(t, buf)

	closeServices()
	closeServices()

	assert.Equal(t, 1, closed)
	assert.Nil(t, services)
	assert.Contains(t, buf.String(), "already closed")
}

func TestCloseServices_KeepsInjected(t *testing.T) {
	closed := false
	SetServices(&Services{Close: func() error {
		closed = true
		return nil
	}})
	t.Cleanup(func() { SetServices(nil) })

	closeServices()

	assert.False(t, closed)
	assert.NotNil(t, services)
}

func TestMCPServeCmd_RequiresAnswerService(t *testing.T) {
	_, err := execute(t, &Services{}, "mcp", "serve")

	assert.ErrorIs(t, err, mcp.ErrMissingAnswerService)
}

func TestMCPServeCmd_HasPortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}
