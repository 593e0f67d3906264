// Package filesystem provides a DocumentSource for local files.
//
// A reference is a file, a directory (walked recursively) or a doublestar
// glob such as "docs/**/*.md". file:// URIs are accepted and stripped.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// DefaultMaxFileSize caps files read into memory (16 MiB).
const DefaultMaxFileSize = 16 << 20

// Config holds configuration for the filesystem source.
type Config struct {
	// Includes are doublestar patterns matched against paths relative to a
	// walked directory (default: "**/*").
	Includes []string

	// Excludes are doublestar patterns that drop matching files.
	Excludes []string

	// IncludeHidden keeps dot files and dot directories.
	IncludeHidden bool

	// MaxFileSize skips larger files (default: 16 MiB).
	MaxFileSize int64
}

// Source reads documents from the local filesystem.
type Source struct {
	includes      []string
	excludes      []string
	includeHidden bool
	maxFileSize   int64
}

// New creates a filesystem source.
func New(cfg Config) *Source {
	if len(cfg.Includes) == 0 {
		cfg.Includes = []string{"**/*"}
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	return &Source{
		includes:      cfg.Includes,
		excludes:      cfg.Excludes,
		includeHidden: cfg.IncludeHidden,
		maxFileSize:   cfg.MaxFileSize,
	}
}

// Name returns the source name.
func (s *Source) Name() string {
	return "filesystem"
}

// Accepts reports whether ref is a local path, glob or file:// URI.
func (s *Source) Accepts(ref string) bool {
	if ref == "" {
		return false
	}
	if strings.HasPrefix(ref, "file://") {
		return true
	}
	if filepath.VolumeName(ref) != "" {
		return true
	}
	return !strings.Contains(ref, ":")
}

// ResolvePath converts a file:// URI to a local path.
// Bare paths pass through unchanged.
func ResolvePath(ref string) string {
	return strings.TrimPrefix(ref, "file://")
}

// Fetch reads every file the reference resolves to.
// Files that cannot be read are logged and skipped; a reference that
// matches nothing is domain.ErrNotFound.
func (s *Source) Fetch(ctx context.Context, ref string, lang domain.Language) ([]domain.RawDocument, error) {
	paths, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.RawDocument, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.read(path, lang)
		if err != nil {
			logger.Warn("skipping %s: %v", path, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Resolve expands a reference into a sorted list of file paths.
func (s *Source) Resolve(ref string) ([]string, error) {
	path := ResolvePath(ref)

	if hasMeta(path) {
		matches, err := doublestar.FilepathGlob(path, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("%w: bad pattern %q: %v", domain.ErrInvalidInput, path, err)
		}
		var files []string
		for _, m := range matches {
			if s.keep(m) {
				files = append(files, m)
			}
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%s: %w", ref, domain.ErrNotFound)
		}
		sort.Strings(files)
		return files, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", ref, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return s.walk(path)
}

func (s *Source) walk(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && (!s.includeHidden && isHidden(rel) || s.excluded(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.included(rel) && s.keep(rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (s *Source) read(path string, lang domain.Language) (domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.RawDocument{}, err
	}
	if info.Size() > s.maxFileSize {
		return domain.RawDocument{}, fmt.Errorf("file too large (%d bytes)", info.Size())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.RawDocument{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return domain.RawDocument{
		URI:      "file://" + filepath.ToSlash(abs),
		MIMEType: detectMIMEType(path),
		Content:  content,
		Language: lang,
		Metadata: map[string]any{
			"path":     path,
			"size":     info.Size(),
			"modified": info.ModTime().Unix(),
			"source":   s.Name(),
		},
	}, nil
}

func (s *Source) keep(path string) bool {
	if !s.includeHidden && isHidden(path) {
		return false
	}
	return !s.excluded(filepath.ToSlash(path))
}

func (s *Source) included(path string) bool {
	return matchAny(s.includes, path)
}

func (s *Source) excluded(path string) bool {
	return matchAny(s.excludes, path)
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// isHidden reports whether any path element starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}

// fallbackMIMETypes covers extensions the mime package does not know on
// every platform.
var fallbackMIMETypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".text":     "text/plain",
	".wiki":     "text/plain",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".html":     "text/html",
	".htm":      "text/html",
	".pdf":      "application/pdf",
	".json":     "application/json",
}

// detectMIMEType maps a file extension to a MIME type without parameters.
// Files with no extension are plain text.
func detectMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text/plain"
	}
	if t, ok := fallbackMIMETypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if base, _, err := mime.ParseMediaType(t); err == nil {
			return base
		}
		return t
	}
	return "application/octet-stream"
}
