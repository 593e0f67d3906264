package driven

// ConfigStore persists settings under flat dotted keys such as
// "search.top_k". Values keep the type they were stored or parsed with;
// converting them into AppSettings is the settings service's job.
type ConfigStore interface {
	// Get returns the stored value for key.
	Get(key string) (any, bool)

	// Set stores value under key and persists it before returning.
	Set(key string, value any) error

	// Keys lists the stored keys, sorted.
	Keys() []string

	// Path is where the settings live, for error messages.
	Path() string
}
