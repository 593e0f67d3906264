package domain

// RawDocument is a fetched page or file before it has been normalised.
type RawDocument struct {
	URI      string
	MIMEType string
	Content  []byte
	// Language is empty when the source could not tell.
	Language Language
	// Metadata carries source specific hints such as the page title.
	Metadata map[string]any
}

// MetadataString returns the string stored under key, or "".
func (r RawDocument) MetadataString(key string) string {
	s, _ := r.Metadata[key].(string)
	return s
}
