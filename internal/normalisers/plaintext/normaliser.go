// Package plaintext normalises plain text, including the plain extracts
// returned by the Wikipedia API.
package plaintext

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// heading matches the "== Storia ==" section markers of plain extracts.
var heading = regexp.MustCompile(`^(={2,6})\s*(.*?)\s*={2,6}$`)

// backMatter lists the sections that end an article body. Everything from
// the first of them on is link lists and citations.
var backMatter = map[string]bool{
	"note":                 true,
	"bibliografia":         true,
	"voci correlate":       true,
	"altri progetti":       true,
	"collegamenti esterni": true,
	"see also":             true,
	"notes":                true,
	"references":           true,
	"further reading":      true,
	"external links":       true,
}

// Normaliser handles plain text. It is the fallback for any text MIME type.
type Normaliser struct{}

// New creates a plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain", "text/csv", "text/markdown", "text/html", "application/json"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5
}

// Normalise repairs encoding and line endings, turns section markers into
// plain heading lines and drops the back matter of encyclopedia extracts.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text := string(raw.Content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	return &driven.NormaliseResult{
		Document: normalisers.NewDocument(raw, "", strings.TrimSpace(sections(text))),
	}, nil
}

// sections rewrites heading markers and cuts the text at the first
// back matter heading. Runs of blank lines collapse to one.
func sections(text string) string {
	var b strings.Builder
	blank := false
	for _, line := range strings.Split(text, "\n") {
		if m := heading.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if backMatter[strings.ToLower(m[2])] {
				break
			}
			line = m[2]
		}
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
