package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/core/ports/driving"
	"github.com/custodia-labs/wikirag/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvPrefix prefixes environment overrides: llm.model is WIKIRAG_LLM_MODEL.
const EnvPrefix = "WIKIRAG_"

// Setting sources reported by Entries.
const (
	SourceDefault = "default"
	SourceConfig  = "config"
	SourceEnv     = "env"
)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyVectorBackend    = "vector_store.backend"
	keyVectorURL        = "vector_store.url"
	keyVectorCollection = "vector_store.collection"
	keyVectorAPIKey     = "vector_store.api_key"
	keyVectorDataDir    = "vector_store.data_dir"
	keyVectorDims       = "vector_store.dimensions"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDims        = "embedding.dimensions"
	keyEmbedCache       = "embedding.cache"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyLLMContextWindow = "llm.context_window"
	keyLLMMaxTokens     = "llm.max_tokens"
	keySearchTopK       = "search.top_k"
	keySearchThreshold  = "search.score_threshold"
	keySearchExpand     = "search.expand_context"
	keySearchLanguage   = "search.language"
	keyWebProvider      = "web.provider"
	keyWebRegion        = "web.region"
	keyWebTimeout       = "web.timeout_seconds"
	keyWebRate          = "web.rate_per_second"
	keyChunkSize        = "chunking.size"
	keyChunkOverlap     = "chunking.overlap"
	keyIngestWorkers    = "ingest.workers"
	keyAcqClean         = "acquisition.clean"
	keyAcqStopwords     = "acquisition.remove_stopwords"
	keyAcqUserAgent     = "acquisition.user_agent"
	keyAcqLanguage      = "acquisition.language"
)

// setting binds a config key to a field of domain.AppSettings.
type setting struct {
	key    string
	secret bool

	// apply parses a textual value into the settings.
	apply func(s *domain.AppSettings, v string) error

	// value returns the field as it is persisted.
	value func(s *domain.AppSettings) any
}

func textSetting[T ~string](key string, field func(*domain.AppSettings) *T) setting {
	return setting{
		key: key,
		apply: func(s *domain.AppSettings, v string) error {
			*field(s) = T(strings.TrimSpace(v))
			return nil
		},
		value: func(s *domain.AppSettings) any { return string(*field(s)) },
	}
}

func secretSetting(key string, field func(*domain.AppSettings) *string) setting {
	st := textSetting(key, field)
	st.secret = true
	return st
}

func intSetting(key string, field func(*domain.AppSettings) *int) setting {
	return setting{
		key: key,
		apply: func(s *domain.AppSettings, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %q is not an integer", key, v)
			}
			*field(s) = n
			return nil
		},
		value: func(s *domain.AppSettings) any { return *field(s) },
	}
}

func floatSetting(key string, field func(*domain.AppSettings) *float64) setting {
	return setting{
		key: key,
		apply: func(s *domain.AppSettings, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s: %q is not a number", key, v)
			}
			*field(s) = f
			return nil
		},
		value: func(s *domain.AppSettings) any { return *field(s) },
	}
}

func boolSetting(key string, field func(*domain.AppSettings) *bool) setting {
	return setting{
		key: key,
		apply: func(s *domain.AppSettings, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %q is not a boolean", key, v)
			}
			*field(s) = b
			return nil
		},
		value: func(s *domain.AppSettings) any { return *field(s) },
	}
}

func secondsSetting(key string, field func(*domain.AppSettings) *time.Duration) setting {
	return setting{
		key: key,
		apply: func(s *domain.AppSettings, v string) error {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || f < 0 {
				return fmt.Errorf("%s: %q is not a number of seconds", key, v)
			}
			*field(s) = time.Duration(f * float64(time.Second))
			return nil
		},
		value: func(s *domain.AppSettings) any { return field(s).Seconds() },
	}
}

var settingTable = []setting{
	textSetting(keyVectorBackend, func(s *domain.AppSettings) *domain.VectorBackend { return &s.VectorStore.Backend }),
	textSetting(keyVectorURL, func(s *domain.AppSettings) *string { return &s.VectorStore.URL }),
	textSetting(keyVectorCollection, func(s *domain.AppSettings) *string { return &s.VectorStore.Collection }),
	secretSetting(keyVectorAPIKey, func(s *domain.AppSettings) *string { return &s.VectorStore.APIKey }),
	textSetting(keyVectorDataDir, func(s *domain.AppSettings) *string { return &s.VectorStore.DataDir }),
	intSetting(keyVectorDims, func(s *domain.AppSettings) *int { return &s.VectorStore.Dimensions }),

	textSetting(keyEmbedProvider, func(s *domain.AppSettings) *domain.AIProvider { return &s.Embedding.Provider }),
	textSetting(keyEmbedModel, func(s *domain.AppSettings) *string { return &s.Embedding.Model }),
	textSetting(keyEmbedBaseURL, func(s *domain.AppSettings) *string { return &s.Embedding.BaseURL }),
	secretSetting(keyEmbedAPIKey, func(s *domain.AppSettings) *string { return &s.Embedding.APIKey }),
	intSetting(keyEmbedDims, func(s *domain.AppSettings) *int { return &s.Embedding.Dimensions }),
	boolSetting(keyEmbedCache, func(s *domain.AppSettings) *bool { return &s.Embedding.Cache }),

	textSetting(keyLLMProvider, func(s *domain.AppSettings) *domain.AIProvider { return &s.LLM.Provider }),
	textSetting(keyLLMModel, func(s *domain.AppSettings) *string { return &s.LLM.Model }),
	textSetting(keyLLMBaseURL, func(s *domain.AppSettings) *string { return &s.LLM.BaseURL }),
	secretSetting(keyLLMAPIKey, func(s *domain.AppSettings) *string { return &s.LLM.APIKey }),
	intSetting(keyLLMContextWindow, func(s *domain.AppSettings) *int { return &s.LLM.Generation.ContextWindow }),
	intSetting(keyLLMMaxTokens, func(s *domain.AppSettings) *int { return &s.LLM.Generation.MaxTokens }),

	intSetting(keySearchTopK, func(s *domain.AppSettings) *int { return &s.Search.TopK }),
	floatSetting(keySearchThreshold, func(s *domain.AppSettings) *float64 { return &s.Search.ScoreThreshold }),
	boolSetting(keySearchExpand, func(s *domain.AppSettings) *bool { return &s.Search.ExpandContext }),
	textSetting(keySearchLanguage, func(s *domain.AppSettings) *domain.Language { return &s.Search.Language }),

	textSetting(keyWebProvider, func(s *domain.AppSettings) *string { return &s.Web.Provider }),
	textSetting(keyWebRegion, func(s *domain.AppSettings) *string { return &s.Web.Region }),
	secondsSetting(keyWebTimeout, func(s *domain.AppSettings) *time.Duration { return &s.Web.Timeout }),
	floatSetting(keyWebRate, func(s *domain.AppSettings) *float64 { return &s.Web.RatePerSecond }),

	intSetting(keyChunkSize, func(s *domain.AppSettings) *int { return &s.Chunking.Size }),
	intSetting(keyChunkOverlap, func(s *domain.AppSettings) *int { return &s.Chunking.Overlap }),
	intSetting(keyIngestWorkers, func(s *domain.AppSettings) *int { return &s.Ingest.Workers }),

	boolSetting(keyAcqClean, func(s *domain.AppSettings) *bool { return &s.Acquisition.Clean }),
	boolSetting(keyAcqStopwords, func(s *domain.AppSettings) *bool { return &s.Acquisition.RemoveStopwords }),
	textSetting(keyAcqUserAgent, func(s *domain.AppSettings) *string { return &s.Acquisition.UserAgent }),
	textSetting(keyAcqLanguage, func(s *domain.AppSettings) *domain.Language { return &s.Acquisition.Language }),
}

func lookupSetting(key string) (setting, bool) {
	for _, st := range settingTable {
		if st.key == key {
			return st, true
		}
	}
	return setting{}, false
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// SettingsService manages application settings.
// Values resolve in order: defaults, config file, environment.
type SettingsService struct {
	configStore driven.ConfigStore
	probe       driven.ProviderProbe
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// probe is optional; without it provider checks always pass.
func NewSettingsService(configStore driven.ConfigStore, probe driven.ProviderProbe) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		probe:       probe,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current application settings and validates them.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings, _, err := s.resolve()
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// resolve layers the config file and environment over the defaults and
// reports where each key came from.
func (s *SettingsService) resolve() (*domain.AppSettings, map[string]string, error) {
	resolved := domain.DefaultAppSettings()
	sources := make(map[string]string, len(settingTable))

	for _, st := range settingTable {
		sources[st.key] = SourceDefault

		if val, ok := s.configStore.Get(st.key); ok {
			if err := st.apply(&resolved, fmt.Sprint(val)); err != nil {
				return nil, nil, &domain.ConfigurationError{Op: "read " + s.configStore.Path(), Err: err}
			}
			sources[st.key] = SourceConfig
		}
		if val, ok := s.lookupEnv(EnvName(st.key)); ok && val != "" {
			if err := st.apply(&resolved, val); err != nil {
				return nil, nil, &domain.ConfigurationError{Op: "read " + EnvName(st.key), Err: err}
			}
			sources[st.key] = SourceEnv
		}
	}

	for _, key := range s.configStore.Keys() {
		if _, ok := lookupSetting(key); !ok {
			logger.Warn("Ignoring unknown setting %s in %s", key, s.configStore.Path())
		}
	}

	// A model with a known budget seeds the context window unless it was set.
	if sources[keyLLMContextWindow] == SourceDefault {
		if w, ok := domain.DefaultContextWindows()[resolved.LLM.Model]; ok {
			resolved.LLM.Generation.ContextWindow = w
		}
	}
	// The embedding model decides the collection dimension unless it was set.
	if sources[keyVectorDims] == SourceDefault {
		if d := resolved.Embedding.EffectiveDimensions(); d > 0 {
			resolved.VectorStore.Dimensions = d
		}
	}

	return &resolved, sources, nil
}

// Save persists application settings. Empty secrets are not written.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	for _, st := range settingTable {
		v := st.value(settings)
		if st.secret && v == "" {
			continue
		}
		if err := s.configStore.Set(st.key, v); err != nil {
			return fmt.Errorf("save %s: %w", st.key, err)
		}
	}
	return nil
}

// Set updates one setting. The resulting settings must validate, so an
// overlap that is not smaller than the chunk size is rejected here.
func (s *SettingsService) Set(key, value string) error {
	st, ok := lookupSetting(key)
	if !ok {
		return &domain.ConfigurationError{Op: "set " + key, Err: fmt.Errorf("%w: unknown setting", domain.ErrInvalidInput)}
	}

	current, _, err := s.resolve()
	if err != nil {
		return err
	}
	if err := st.apply(current, value); err != nil {
		return &domain.ConfigurationError{Op: "set " + key, Err: fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)}
	}
	if err := current.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, st.value(current)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns the supported setting keys, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingTable))
	for _, st := range settingTable {
		keys = append(keys, st.key)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns every setting with secrets masked, sorted by key.
func (s *SettingsService) Entries() ([]driving.SettingEntry, error) {
	current, sources, err := s.resolve()
	if err != nil {
		return nil, err
	}

	entries := make([]driving.SettingEntry, 0, len(settingTable))
	for _, st := range settingTable {
		value := fmt.Sprint(st.value(current))
		if st.secret && value != "" {
			value = maskSecret(value)
		}
		entries = append(entries, driving.SettingEntry{Key: st.key, Value: value, Source: sources[st.key]})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// CheckEmbedding probes the configured embedding provider. The vector
// size it returns must match vector_store.dimensions when that is set.
func (s *SettingsService) CheckEmbedding(ctx context.Context) error {
	if s.probe == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	dims, err := s.probe.ProbeEmbedding(ctx, settings.Embedding)
	if err != nil {
		return err
	}
	if want := settings.VectorStore.Dimensions; dims > 0 && want > 0 && dims != want {
		return &domain.ConfigurationError{
			Op: "check embedding",
			Err: fmt.Errorf("%w: %s returns %d dimensions, %s is %d",
				domain.ErrDimensionMismatch, settings.Embedding.Model, dims, keyVectorDims, want),
		}
	}
	return nil
}

// CheckLLM probes the configured generation provider.
func (s *SettingsService) CheckLLM(ctx context.Context) error {
	if s.probe == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.probe.ProbeLLM(ctx, settings.LLM)
}

func maskSecret(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + strings.Repeat("*", len(v)-4) + v[len(v)-2:]
}
