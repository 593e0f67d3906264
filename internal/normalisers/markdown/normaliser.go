// Package markdown normalises Markdown notes into plain text.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/logger"
	"github.com/custodia-labs/wikirag/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// frontMatter matches a leading YAML block delimited by "---" lines.
var frontMatter = regexp.MustCompile(`(?s)\A---\n(.*?)\n---\n?`)

type rewrite struct {
	re   *regexp.Regexp
	with string
}

// syntax is applied in order. Fenced code keeps its body, images are
// dropped and links keep their text.
var syntax = []rewrite{
	{regexp.MustCompile("(?m)^(```|~~~).*$"), ""},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`), ""},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`), "$1"},
	{regexp.MustCompile(`\[\[(?:[^\]|]*\|)?([^\]]+)\]\]`), "$1"},
	{regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+(.*?)[ \t]*#*[ \t]*$`), "$1"},
	{regexp.MustCompile(`(?m)^(=+|-{3,}|\*{3,}|_{3,})[ \t]*$`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`), ""},
	{regexp.MustCompile(`(?m)^[ \t]*(?:[-*+]|\d+[.)])[ \t]+`), ""},
	{regexp.MustCompile(`(\*\*|__)(\S(?:.*?\S)?)(?:\*\*|__)`), "$2"},
	{regexp.MustCompile(`(?m)(^|[^\w*])[*_](\S(?:[^*_\n]*?\S)?)[*_]`), "$1$2"},
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

var (
	atxTitle    = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t]*#*[ \t]*$`)
	setextTitle = regexp.MustCompile(`(?m)^(\S.*)\n=+[ \t]*$`)
)

// Normaliser handles Markdown notes.
type Normaliser struct{}

// New creates a Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts a note to plain text. The title comes from the
// front matter, then the first level one heading, then the file name.
// A front matter language overrides the one the note was acquired with.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	meta, text := splitFrontMatter(raw.URI, text)

	title := meta.Title
	if title == "" {
		title = extractTitle(text)
	}

	doc := normalisers.NewDocument(raw, title, strip(text))
	if meta.Lang != "" {
		if lang, err := domain.ParseLanguage(meta.Lang); err == nil {
			doc.Language = lang
		} else {
			logger.Warn("Ignoring language %q in %s: %v", meta.Lang, raw.URI, err)
		}
	}
	return &driven.NormaliseResult{Document: doc}, nil
}

type noteMeta struct {
	Title string `yaml:"title"`
	Lang  string `yaml:"lang"`
}

// splitFrontMatter separates the YAML header from the body. A header that
// does not parse is kept as body text.
func splitFrontMatter(uri, text string) (noteMeta, string) {
	var meta noteMeta
	loc := frontMatter.FindStringSubmatchIndex(text)
	if loc == nil {
		return meta, text
	}
	if err := yaml.Unmarshal([]byte(text[loc[2]:loc[3]]), &meta); err != nil {
		logger.Debug("Front matter of %s is not YAML: %v", uri, err)
		return noteMeta{}, text
	}
	return meta, text[loc[1]:]
}

// extractTitle returns the first level one heading, or "" when there is none.
func extractTitle(text string) string {
	if m := atxTitle.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := setextTitle.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func strip(text string) string {
	for _, r := range syntax {
		text = r.re.ReplaceAllString(text, r.with)
	}
	return strings.TrimSpace(text)
}
