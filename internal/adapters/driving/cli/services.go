package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/core/ports/driving"
	"github.com/custodia-labs/wikirag/internal/logger"
)

// Command annotations that control how much of the stack is built.
const (
	annotationBootstrap = "bootstrap"
	bootstrapNone       = "none"
	bootstrapSettings   = "settings"
)

// Services are the core services the commands drive.
// Fields a command does not need may be nil.
type Services struct {
	Settings    driving.SettingsService
	Answer      driving.AnswerService
	Retrieval   driving.RetrievalService
	Ingestion   driving.IngestionService
	Collections driving.CollectionService
	Prompts     driven.PromptStore

	// Search holds the configured retrieval defaults that flags override.
	Search domain.SearchParams

	// Close releases the adapters. May be nil.
	Close func() error
}

// BootstrapOptions describe the stack a command needs.
type BootstrapOptions struct {
	// ConfigDir is the --config-dir flag; empty means ~/.wikirag.
	ConfigDir string

	// SettingsOnly asks for Services.Settings alone.
	SettingsOnly bool

	// DocumentsDir makes a full pipeline run also write document records.
	DocumentsDir string

	// Templates replaces the answer template per language.
	Templates map[domain.Language]string

	// Override adjusts the resolved settings from command flags before the
	// adapters are built.
	Override func(*domain.AppSettings) error
}

// BootstrapFunc builds the services for a command.
type BootstrapFunc func(BootstrapOptions) (*Services, error)

// preparers adjust the bootstrap options from a command's flags.
var preparers = map[*cobra.Command]func(*cobra.Command, *BootstrapOptions) error{}

var (
	bootstrap BootstrapFunc
	services  *Services
	injected  bool
)

// SetBootstrap installs the function that builds the services.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs ready-made services. While set, the bootstrap is
// skipped and the services are never closed by the CLI.
func SetServices(s *Services) {
	services = s
	injected = s != nil
}

func startServices(opts BootstrapOptions) error {
	if bootstrap == nil {
		return errors.New("services not configured")
	}
	s, err := bootstrap(opts)
	if err != nil {
		return err
	}
	services = s
	return nil
}

func closeServices() {
	if injected || services == nil {
		return
	}
	if services.Close != nil {
		if err := services.Close(); err != nil {
			logger.Warn("Failed to close services: %v", err)
		}
	}
	services = nil
}

func settingsService() (driving.SettingsService, error) {
	if services == nil || services.Settings == nil {
		return nil, errors.New("settings service not configured")
	}
	return services.Settings, nil
}

func ingestionService() (driving.IngestionService, error) {
	if services == nil || services.Ingestion == nil {
		return nil, errors.New("ingestion service not configured")
	}
	return services.Ingestion, nil
}

func answerService() (driving.AnswerService, error) {
	if services == nil || services.Answer == nil {
		return nil, errors.New("answer service not configured")
	}
	return services.Answer, nil
}

func retrievalService() (driving.RetrievalService, error) {
	if services == nil || services.Retrieval == nil {
		return nil, errors.New("retrieval service not configured")
	}
	return services.Retrieval, nil
}

func collectionService() (driving.CollectionService, error) {
	if services == nil || services.Collections == nil {
		return nil, errors.New("collection service not configured")
	}
	return services.Collections, nil
}

// searchDefaults returns the configured retrieval defaults.
func searchDefaults() domain.SearchParams {
	if services == nil || services.Search == (domain.SearchParams{}) {
		return domain.DefaultSearchParams()
	}
	return services.Search
}
