package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/logger"
)

//go:embed templates
var templates embed.FS

const templateExt = ".txt"

var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves answer templates from a directory of .txt files.
// The directory is seeded with the built-in templates on first use, and a
// built-in template is served whenever its file is missing or unusable.
type PromptStore struct {
	dir    string
	seeded func() error

	mu     sync.RWMutex
	loaded map[string]string
}

// DefaultPrompt returns the built-in template called name.
func DefaultPrompt(name string) (string, bool) {
	data, err := templates.ReadFile("templates/" + name + templateExt)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// NewPromptStore returns a store rooted at dir, or ~/.wikirag/prompts when
// dir is empty. Nothing is written until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "prompts")
	}
	s := &PromptStore{dir: dir, loaded: make(map[string]string)}
	s.seeded = sync.OnceValue(s.seed)
	return s, nil
}

// Dir returns the template directory.
func (s *PromptStore) Dir() string { return s.dir }

// Load returns the template called name.
func (s *PromptStore) Load(name string) (string, error) {
	if err := s.seeded(); err != nil {
		if p, ok := DefaultPrompt(name); ok {
			return p, nil
		}
		return "", fmt.Errorf("prompt directory %s: %w", s.dir, err)
	}

	s.mu.RLock()
	p, ok := s.loaded[name]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := s.read(name)
	if err != nil {
		def, ok := DefaultPrompt(name)
		if !ok {
			return "", fmt.Errorf("load prompt %q: %w", name, err)
		}
		p = def
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.loaded[name]; ok {
		return cached, nil
	}
	s.loaded[name] = p
	return p, nil
}

// Reload forgets every loaded template.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.loaded = make(map[string]string)
	s.mu.Unlock()
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+templateExt))
	if err != nil {
		return "", err
	}
	p := strings.TrimSpace(string(data))
	if !strings.Contains(p, driven.PlaceholderQuery) {
		logger.Warn("prompt %q has no %s placeholder, using the default", name, driven.PlaceholderQuery)
		return "", fmt.Errorf("missing %s placeholder", driven.PlaceholderQuery)
	}
	return p, nil
}

// seed copies every built-in file that does not exist yet.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	entries, err := templates.ReadDir("templates")
	if err != nil {
		return err
	}
	for _, e := range entries {
		target := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(target); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := templates.ReadFile("templates/" + e.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", e.Name(), err)
		}
	}
	return nil
}
