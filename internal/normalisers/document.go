package normalisers

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// NewDocument builds a document from a raw document and extracted text.
// An explicit title in the raw metadata wins over the given fallback.
func NewDocument(raw *domain.RawDocument, fallbackTitle, content string) domain.Document {
	title := fallbackTitle
	if t := raw.MetadataString("title"); t != "" {
		title = t
	}
	if title == "" {
		title = TitleFromURI(raw.URI)
	}
	return domain.Document{
		Title:    title,
		URL:      raw.URI,
		Language: raw.Language,
		Content:  content,
	}
}

// TitleFromURI derives a human-readable title from a file path or URL.
func TitleFromURI(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" && u.Path != "" {
		uri = u.Path
	}
	name := filepath.Base(uri)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}
