// Package wikitext cleans encyclopedia text before it is chunked.
//
// Cleaning removes numeric references such as [12], hyperlinks, words of
// one or two characters and punctuation, collapses whitespace and
// lowercases the result. Stopword removal for Italian and English is
// applied on top when enabled.
package wikitext

import (
	"bufio"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

//go:embed stopwords/*.txt
var stopwordFiles embed.FS

// Verify interface compliance.
var _ driven.TextCleaner = (*Cleaner)(nil)

var (
	references = regexp.MustCompile(`\[\d+\]`)
	hyperlinks = regexp.MustCompile(`https?://.*/\w*`)
)

// minWordLength is the shortest word kept by Clean.
const minWordLength = 3

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithStopwords enables or disables stopword removal.
func WithStopwords(enabled bool) Option {
	return func(c *Cleaner) {
		c.stopwords = enabled
	}
}

// Cleaner implements driven.TextCleaner.
type Cleaner struct {
	stopwords bool

	once  sync.Once
	lists map[domain.Language]map[string]struct{}
	err   error
}

// New creates a cleaner. Stopword removal is on by default.
func New(opts ...Option) *Cleaner {
	c := &Cleaner{stopwords: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean normalises text for indexing in the given language.
func (c *Cleaner) Clean(text string, lang domain.Language) (string, error) {
	if !lang.IsValid() {
		return "", &domain.ConfigurationError{
			Op:  "clean text",
			Err: fmt.Errorf("%w: %q", domain.ErrUnsupportedLanguage, lang),
		}
	}

	cleaned := Normalize(text)
	if !c.stopwords {
		return cleaned, nil
	}
	return c.removeStopwords(cleaned, lang)
}

// Normalize applies the language-independent cleaning steps.
func Normalize(text string) string {
	text = references.ReplaceAllString(text, "")
	text = hyperlinks.ReplaceAllString(text, "")

	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	flush := func(word string) {
		if utf8.RuneCountInString(word) < minWordLength {
			return
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteString(strings.ToLower(word))
	}

	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(text[start:i])
			start = -1
		}
		pendingSpace = true
	}
	if start >= 0 {
		flush(text[start:])
	}
	return b.String()
}

func (c *Cleaner) removeStopwords(text string, lang domain.Language) (string, error) {
	c.once.Do(c.loadStopwords)
	if c.err != nil {
		return "", c.err
	}

	stop := c.lists[lang]
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, w := range fields {
		if _, ok := stop[strings.ToLower(w)]; !ok {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " "), nil
}

func (c *Cleaner) loadStopwords() {
	c.lists = make(map[domain.Language]map[string]struct{})
	for _, lang := range domain.AllLanguages() {
		f, err := stopwordFiles.Open("stopwords/" + lang.String() + ".txt")
		if err != nil {
			c.err = fmt.Errorf("load %s stopwords: %w", lang, err)
			return
		}
		words := make(map[string]struct{})
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if w := strings.TrimSpace(scanner.Text()); w != "" {
				words[w] = struct{}{}
			}
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			c.err = fmt.Errorf("read %s stopwords: %w", lang, err)
			return
		}
		c.lists[lang] = words
	}
}

// Stopwords reports whether w is a stopword in lang.
func (c *Cleaner) Stopwords(lang domain.Language, w string) bool {
	c.once.Do(c.loadStopwords)
	_, ok := c.lists[lang][strings.ToLower(w)]
	return ok
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
