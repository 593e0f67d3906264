package chunker

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

// DefaultSeparators are tried in order: paragraph, line, word, character.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts text into bounded, overlapping chunks.
//
// Boundaries are placed at the coarsest separator that keeps pieces within
// budget. Every chunk after the first starts with exactly Overlap runes taken
// from the end of the previous chunk, so c[0] + c[1][Overlap:] + ... rebuilds
// the trimmed input.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// NewSplitter returns a splitter for chunks of at most size runes sharing
// overlap runes with their predecessor. Only WithSeparators is meaningful
// here; size and overlap are taken from the arguments.
func NewSplitter(size, overlap int, opts ...Option) (*Splitter, error) {
	cfg := config{separators: DefaultSeparators}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := (domain.ChunkSettings{Size: size, Overlap: overlap}).Validate(); err != nil {
		return nil, err
	}
	return &Splitter{size: size, overlap: overlap, separators: cfg.separators}, nil
}

// Size returns the maximum chunk length in runes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the number of runes shared by consecutive chunks.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the chunks of text in document order. The sequence is
// computed lazily and can be ranged over any number of times.
func (s *Splitter) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return
		}
		runes := []rune(trimmed)
		if len(runes) <= s.size {
			yield(trimmed)
			return
		}

		var (
			start, end int // body of the pending chunk, in runes
			first      = true
		)
		emit := func() bool {
			from := start
			if !first {
				from = max(0, start-s.overlap)
			}
			first = false
			return yield(string(runes[from:end]))
		}

		pieceBudget := s.size - s.overlap
		more := s.walk(trimmed, s.separators, pieceBudget, func(piece string) bool {
			n := utf8.RuneCountInString(piece)
			budget := pieceBudget
			if first {
				budget = s.size
			}
			if end > start && end-start+n > budget {
				if !emit() {
					return false
				}
				start = end
			}
			end += n
			return true
		})
		if more && end > start {
			emit()
		}
	}
}

// walk yields consecutive pieces of text, each at most limit runes, whose
// concatenation is text. Separators stay attached to the piece they end.
func (s *Splitter) walk(text string, separators []string, limit int, yield func(string) bool) bool {
	if utf8.RuneCountInString(text) <= limit {
		return yield(text)
	}

	sep, rest := pickSeparator(text, separators)
	if sep == "" {
		runes := []rune(text)
		for i := 0; i < len(runes); i += limit {
			if !yield(string(runes[i:min(i+limit, len(runes))])) {
				return false
			}
		}
		return true
	}

	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if !s.walk(part, rest, limit, yield) {
			return false
		}
	}
	return true
}

// pickSeparator returns the first separator present in text and the finer
// separators after it. The empty separator always matches.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}
