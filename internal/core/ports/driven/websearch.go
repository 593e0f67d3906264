package driven

import "context"

// WebSearcher fetches a short textual snippet for a query from the web.
// The returned text may be empty when the provider has nothing relevant.
type WebSearcher interface {
	// Search returns snippet text for the query.
	Search(ctx context.Context, query string) (string, error)

	// Name returns the provider name for logging.
	Name() string
}
