// Package jsonfs stores pipeline records as one JSON file per record.
//
// Document records are named after the title (spaces and slashes become
// underscores); chunk records are named after the chunk ID. Both are
// pretty-printed UTF-8 JSON so the intermediate stages can be inspected
// and edited by hand.
package jsonfs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.RecordStore = (*Store)(nil)

// DefaultPattern matches the record files directly inside a directory.
const DefaultPattern = "*.json"

// Option configures a Store.
type Option func(*Store)

// WithPattern sets the doublestar pattern used to list records, relative
// to the record directory (e.g. "**/*.json" to include subdirectories).
func WithPattern(pattern string) Option {
	return func(s *Store) {
		if pattern != "" {
			s.pattern = pattern
		}
	}
}

// Store implements driven.RecordStore on the local filesystem.
type Store struct {
	pattern string
}

// New creates a record store.
func New(opts ...Option) *Store {
	s := &Store{pattern: DefaultPattern}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DocumentFilename returns the record filename for a document title.
func DocumentFilename(title string) string {
	name := strings.NewReplacer(" ", "_", "/", "_").Replace(title)
	return name + ".json"
}

// WriteDocument stores one document record in dir and returns its path.
func (s *Store) WriteDocument(dir string, doc domain.Document) (string, error) {
	if strings.TrimSpace(doc.Title) == "" {
		return "", fmt.Errorf("%w: document without title", domain.ErrInvalidInput)
	}
	path := filepath.Join(dir, DocumentFilename(doc.Title))
	if err := writeJSON(path, doc); err != nil {
		return "", fmt.Errorf("write document %q: %w", doc.Title, err)
	}
	return path, nil
}

// ListDocuments returns the document record paths in dir, sorted.
func (s *Store) ListDocuments(dir string) ([]string, error) {
	return s.list(dir)
}

// ReadDocument loads a document record.
func (s *Store) ReadDocument(path string) (*domain.Document, error) {
	var doc domain.Document
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// WriteChunk stores one chunk record in dir and returns its path.
func (s *Store) WriteChunk(dir string, chunk domain.Chunk) (string, error) {
	if chunk.ID == "" {
		return "", fmt.Errorf("%w: chunk without id", domain.ErrInvalidInput)
	}
	path := filepath.Join(dir, chunk.ID+".json")
	if err := writeJSON(path, chunk); err != nil {
		return "", fmt.Errorf("write chunk %s: %w", chunk.ID, err)
	}
	return path, nil
}

// ListChunks returns the chunk record paths in dir, sorted.
func (s *Store) ListChunks(dir string) ([]string, error) {
	return s.list(dir)
}

// ReadChunk loads a chunk record. Records without an id or vector are rejected.
func (s *Store) ReadChunk(path string) (*domain.Chunk, error) {
	var chunk domain.Chunk
	if err := readJSON(path, &chunk); err != nil {
		return nil, err
	}
	if chunk.ID == "" || len(chunk.Vector) == 0 {
		return nil, fmt.Errorf("%w: %s: chunk record needs id and vector", domain.ErrInvalidInput, path)
	}
	return &chunk, nil
}

// RemoveChunk deletes the chunk record at path.
func (s *Store) RemoveChunk(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove chunk %s: %w", path, err)
	}
	return nil
}

func (s *Store) list(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: directory %s", domain.ErrNotFound, dir)
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), s.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	sort.Strings(paths)
	return paths, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrInvalidInput, path, err)
	}
	return nil
}
