package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

func normalise(t *testing.T, uri, content string) domain.Document {
	t.Helper()
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		URI:      uri,
		MIMEType: "text/markdown",
		Language: domain.LanguageItalian,
		Content:  []byte(content),
	})
	require.NoError(t, err)
	return result.Document
}

func TestNormaliser_Basics(t *testing.T) {
	n := New()
	assert.Equal(t, []string{"text/markdown", "text/x-markdown"}, n.SupportedMIMETypes())
	assert.Equal(t, 50, n.Priority())

	_, err := n.Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_Success(t *testing.T) {
	doc := normalise(t, "notes/olimpiadi.md", `# Olimpiadi del 1896

I **primi** giochi moderni si tennero ad [Atene](https://it.wikipedia.org/wiki/Atene).

- atletica
- nuoto
`)

	assert.Equal(t, "Olimpiadi del 1896", doc.Title)
	assert.Equal(t, domain.LanguageItalian, doc.Language)
	assert.Contains(t, doc.Content, "I primi giochi moderni si tennero ad Atene.")
	assert.Contains(t, doc.Content, "atletica\nnuoto")
	assert.NotContains(t, doc.Content, "https://")
}

func TestNormalise_Title(t *testing.T) {
	t.Run("file name when no level one heading", func(t *testing.T) {
		doc := normalise(t, "notes/primi-giochi.md", "## Sub heading\ntext")
		assert.Equal(t, "primi giochi", doc.Title)
	})

	t.Run("underlined heading", func(t *testing.T) {
		doc := normalise(t, "roma.md", "Storia di Roma\n==============\n\nTesto.")
		assert.Equal(t, "Storia di Roma", doc.Title)
		assert.Equal(t, "Storia di Roma\n\nTesto.", doc.Content)
	})
}

func TestNormalise_FrontMatter(t *testing.T) {
	t.Run("title and language", func(t *testing.T) {
		doc := normalise(t, "atene.md", "---\ntitle: Appunti su Atene\nlang: en\n---\n# Atene\n\nCapitale.")

		assert.Equal(t, "Appunti su Atene", doc.Title)
		assert.Equal(t, domain.LanguageEnglish, doc.Language)
		assert.Equal(t, "Atene\n\nCapitale.", doc.Content)
	})

	t.Run("unsupported language is ignored", func(t *testing.T) {
		doc := normalise(t, "berlin.md", "---\nlang: de\n---\ntesto")

		assert.Equal(t, domain.LanguageItalian, doc.Language)
		assert.Equal(t, "testo", doc.Content)
	})

	t.Run("invalid yaml stays in the body", func(t *testing.T) {
		doc := normalise(t, "bozza.md", "---\ntitle: [unclosed\n---\ntesto")

		assert.Equal(t, "bozza", doc.Title)
		assert.Contains(t, doc.Content, "title: [unclosed")
		assert.Contains(t, doc.Content, "testo")
	})
}

func TestStrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"headings", "## Title\ntext", "Title\ntext"},
		{"fenced code keeps its body", "a\n```go\nx := 1\n```\nb", "a\n\nx := 1\n\nb"},
		{"inline code", "use `go test` now", "use go test now"},
		{"image", "![alt](img.png)after", "after"},
		{"blockquote", "> quoted", "quoted"},
		{"numbered list", "1. one\n2. two", "one\ntwo"},
		{"emphasis", "**grassetto** e *corsivo* e snake_case_name", "grassetto e corsivo e snake_case_name"},
		{"wiki links", "vedi [[Giochi olimpici|le Olimpiadi]] e [[Roma]]", "vedi le Olimpiadi e Roma"},
		{"blank runs", "a\n\n\n\nb", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strip(tt.input))
		})
	}
}
