package driving

import (
	"context"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment
	// overrides applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single setting by its dotted key (e.g. "search.top_k").
	Set(key, value string) error

	// Keys returns the supported setting keys, sorted.
	Keys() []string

	// Entries returns every setting with secrets masked.
	Entries() ([]SettingEntry, error)

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// CheckEmbedding probes the embedding provider and compares its
	// vector size with the configured collection dimension.
	CheckEmbedding(ctx context.Context) error

	// CheckLLM probes the generation provider.
	CheckLLM(ctx context.Context) error
}

// SettingEntry is one setting rendered for display.
type SettingEntry struct {
	Key   string
	Value string

	// Source is "default", "config" or "env".
	Source string
}
