package domain

import (
	"errors"
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API (or any compatible endpoint).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderHash is the built-in feature-hashing embedder.
	// It needs no network access and is fully deterministic.
	AIProviderHash AIProvider = "hash"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderHash:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHash
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderHash:
		return "Feature hashing (built-in)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies the vector store implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendQdrant is a Qdrant server reached over REST.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendSQLite is an embedded SQLite file with brute-force search.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendMemory keeps points in process memory only.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendQdrant, VectorBackendSQLite, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// VectorStoreSettings holds vector store configuration.
type VectorStoreSettings struct {
	// Backend selects the store implementation.
	Backend VectorBackend

	// URL is the Qdrant endpoint (e.g. http://localhost:6333).
	URL string

	// Collection is the target collection name.
	Collection string

	// APIKey is the optional Qdrant API key.
	APIKey string

	// DataDir is where the sqlite backend keeps its database.
	DataDir string

	// Dimensions is the vector size new collections are created with.
	Dimensions int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's known vector size.
	Dimensions int

	// Cache enables the on-disk embedding cache.
	Cache bool

	// CachePath is the bbolt file used by the cache.
	CachePath string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// EffectiveDimensions returns the configured or known vector size for the model.
func (e EmbeddingSettings) EffectiveDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	return EmbeddingDimensions()[e.Model]
}

// GenerationConfig fixes how the text-generation service is invoked.
// Temperature is pinned to zero so answers are reproducible.
type GenerationConfig struct {
	// ContextWindow is the input budget in tokens.
	ContextWindow int

	// MaxTokens caps the answer length (0 = provider default).
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Generation fixes the sampling configuration and context budget.
	Generation GenerationConfig
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHash {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// WebSearchSettings configures the web context-expansion branch.
type WebSearchSettings struct {
	// Provider is the web search provider name.
	Provider string

	// Region regionalises results (e.g. "it-it").
	Region string

	// Timeout bounds the web branch of a query.
	Timeout time.Duration

	// RatePerSecond throttles outgoing search requests.
	RatePerSecond float64
}

// ChunkSettings configures the recursive splitter.
type ChunkSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int
}

// Validate rejects sizes that would make the splitter degenerate.
func (c ChunkSettings) Validate() error {
	switch {
	case c.Size <= 0:
		return &ConfigurationError{Op: "validate chunking", Err: fmt.Errorf("chunk size must be positive, got %d", c.Size)}
	case c.Overlap < 0:
		return &ConfigurationError{Op: "validate chunking", Err: fmt.Errorf("chunk overlap must not be negative, got %d", c.Overlap)}
	case c.Overlap >= c.Size:
		return &ConfigurationError{
			Op:  "validate chunking",
			Err: fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", c.Overlap, c.Size),
		}
	}
	return nil
}

// IngestSettings configures the ingestion worker pool.
type IngestSettings struct {
	// Workers is the number of documents processed concurrently.
	Workers int
}

// AcquisitionSettings configures document acquisition.
type AcquisitionSettings struct {
	// Clean strips references, links, short words and punctuation.
	Clean bool

	// RemoveStopwords drops language stopwords after cleaning.
	RemoveStopwords bool

	// UserAgent is sent to upstream document sources.
	UserAgent string

	// Language is used when a source does not declare one.
	Language Language
}

// AppSettings holds all application settings.
type AppSettings struct {
	VectorStore VectorStoreSettings
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	Search      SearchParams
	Web         WebSearchSettings
	Chunking    ChunkSettings
	Ingest      IngestSettings
	Acquisition AcquisitionSettings
}

// Validate checks the settings that would otherwise fail late.
func (s AppSettings) Validate() error {
	var errs []error
	if !s.VectorStore.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("%w: vector backend %q", ErrUnsupportedType, s.VectorStore.Backend))
	}
	if s.VectorStore.Collection == "" {
		errs = append(errs, errors.New("vector store collection is required"))
	}
	if !s.Embedding.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("%w: embedding provider %q", ErrUnsupportedType, s.Embedding.Provider))
	}
	if s.LLM.Generation.Temperature != 0 {
		errs = append(errs, fmt.Errorf("generation temperature must be 0, got %g", s.LLM.Generation.Temperature))
	}
	if s.Ingest.Workers < 1 {
		errs = append(errs, fmt.Errorf("ingest workers must be at least 1, got %d", s.Ingest.Workers))
	}
	if err := s.Chunking.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Search.Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.Acquisition.Language != "" && !s.Acquisition.Language.IsValid() {
		errs = append(errs, fmt.Errorf("%w: acquisition language %q", ErrUnsupportedLanguage, s.Acquisition.Language))
	}
	if len(errs) > 0 {
		return &ConfigurationError{Op: "validate settings", Err: errors.Join(errs...)}
	}
	return nil
}

// Default setting values.
const (
	DefaultCollection     = "wikipedia"
	DefaultQdrantURL      = "http://localhost:6333"
	DefaultEmbeddingModel = "all-minilm"
	DefaultDimensions     = 384
	DefaultLLMModel       = "llama3.1"
	DefaultContextWindow  = 2000
	DefaultChunkSize      = 450
	DefaultChunkOverlap   = 20
	DefaultWorkers        = 4
	DefaultWebTimeout     = 5 * time.Second
	DefaultUserAgent      = "WikiRag"
)

// DefaultAppSettings returns settings with sensible defaults.
// They reproduce a local deployment: Qdrant on localhost, Ollama serving
// all-minilm and llama3.1, Italian answers with web expansion enabled.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		VectorStore: VectorStoreSettings{
			Backend:    VectorBackendQdrant,
			URL:        DefaultQdrantURL,
			Collection: DefaultCollection,
			Dimensions: DefaultDimensions,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModel,
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    DefaultLLMModel,
			Generation: GenerationConfig{
				ContextWindow: DefaultContextWindow,
				Temperature:   0,
			},
		},
		Search: DefaultSearchParams(),
		Web: WebSearchSettings{
			Provider:      "duckduckgo",
			Region:        LanguageItalian.DefaultRegion(),
			Timeout:       DefaultWebTimeout,
			RatePerSecond: 1,
		},
		Chunking: ChunkSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Ingest: IngestSettings{
			Workers: DefaultWorkers,
		},
		Acquisition: AcquisitionSettings{
			Clean:           true,
			RemoveStopwords: true,
			UserAgent:       DefaultUserAgent,
			Language:        LanguageItalian,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderHash,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: DefaultEmbeddingModel,
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderHash:   "hash-384",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    DefaultLLMModel,
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"all-minilm":        384,
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		// Sentence-transformers name
		"all-MiniLM-L6-v2": 384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Built-in
		"hash-384": 384,
	}
}

// DefaultContextWindows returns the input budget for known generation models.
// It only seeds GenerationConfig when llm.context_window is not set.
func DefaultContextWindows() map[string]int {
	return map[string]int{
		"llama3.1":    DefaultContextWindow,
		"llama3.2":    DefaultContextWindow,
		"gpt-4o-mini": 16000,
	}
}
