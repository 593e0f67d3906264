package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts an HTML document to a plain-text document.
// Wikipedia pages saved from a browser keep their <title>, which becomes
// the document title. Block elements become separate lines.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	rawContent := string(raw.Content)

	title := extractHTMLTitle(rawContent)

	// Convert HTML to plain text
	content := stripHTML(rawContent)

	return &driven.NormaliseResult{
		Document: normalisers.NewDocument(raw, title, content),
	}, nil
}

var (
	titleTag        = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	wikipediaSuffix = regexp.MustCompile(`\s+[-–—]\s+Wikipedia\s*$`)
	editLinks       = regexp.MustCompile(`(?i)\[\s*(modifica(\s*\|\s*modifica wikitesto)?|edit(\s+source)?)\s*\]`)
	multiSpaces     = regexp.MustCompile(`[ \t]+`)
)

type rewrite struct {
	re   *regexp.Regexp
	with string
}

// markup is applied in order. Elements without readable text go first so
// they leave no blank lines once block elements turn into line breaks.
var markup = []rewrite{
	{regexp.MustCompile(`(?is)<(script|style|noscript|head|svg|nav)\b[^>]*>.*?</(script|style|noscript|head|svg|nav)>`), ""},
	{titleTag, ""},
	// Citation markers such as [1] and [senza fonte].
	{regexp.MustCompile(`(?is)<sup[^>]*class="[^"]*reference[^"]*"[^>]*>.*?</sup>`), ""},
	{regexp.MustCompile(`(?s)<!--.*?-->`), ""},
	{regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`), "\n"},
	{regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`), "\n"},
	{regexp.MustCompile(`(?i)<(br|hr)\s*/?>`), "\n"},
	{regexp.MustCompile(`<[^>]+>`), ""},
}

// extractHTMLTitle extracts a title from the <title> tag, stripping the
// " - Wikipedia" suffix browsers save with the page.
func extractHTMLTitle(content string) string {
	matches := titleTag.FindStringSubmatch(content)
	if len(matches) < 2 {
		return ""
	}
	title := html.UnescapeString(strings.TrimSpace(matches[1]))
	return strings.TrimSpace(wikipediaSuffix.ReplaceAllString(title, ""))
}

// stripHTML returns the readable text of content, one block per line.
func stripHTML(content string) string {
	for _, r := range markup {
		content = r.re.ReplaceAllString(content, r.with)
	}
	content = html.UnescapeString(content)
	content = editLinks.ReplaceAllString(content, "")

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(multiSpaces.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
