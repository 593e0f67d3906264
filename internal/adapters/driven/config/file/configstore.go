package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigFileName is the settings file inside the config directory.
const ConfigFileName = "config.toml"

// ConfigStore keeps settings in a TOML file. In memory keys are flat dot
// paths ("llm.model"); on disk they become nested tables.
type ConfigStore struct {
	path string

	mu     sync.RWMutex
	values map[string]any
}

// DefaultDir returns ~/.wikirag.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".wikirag"), nil
}

// NewConfigStore opens <dir>/config.toml, creating dir when needed. A
// missing file is an empty configuration.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	values, err := readTOML(path)
	if err != nil {
		return nil, err
	}
	return &ConfigStore{path: path, values: values}, nil
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values))
}

func (s *ConfigStore) Path() string { return s.path }

// Set writes the whole file before returning. The in-memory value is rolled
// back if the write fails. A key may not be both a value and a table, so
// "llm" and "llm.model" cannot coexist.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for other := range s.values {
		if strings.HasPrefix(other, key+".") || strings.HasPrefix(key, other+".") {
			return fmt.Errorf("set %q: conflicts with %q", key, other)
		}
	}

	next := maps.Clone(s.values)
	next[key] = value
	if err := writeTOML(s.path, next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func readTOML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return flattenMap(tree, ""), nil
}

// writeTOML replaces path through a temporary file in the same directory.
func writeTOML(path string, values map[string]any) error {
	data, err := toml.Marshal(nestMap(values))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ConfigFileName+".*")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// flattenMap turns {"a": {"b": 1}} into {"a.b": 1}.
func flattenMap(tree map[string]any, prefix string) map[string]any {
	flat := make(map[string]any, len(tree))
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			maps.Copy(flat, flattenMap(sub, k))
			continue
		}
		flat[k] = v
	}
	return flat
}

// nestMap undoes flattenMap.
func nestMap(flat map[string]any) map[string]any {
	tree := map[string]any{}
	for key, v := range flat {
		path := strings.Split(key, ".")
		node := tree
		for _, name := range path[:len(path)-1] {
			sub, ok := node[name].(map[string]any)
			if !ok {
				sub = map[string]any{}
				node[name] = sub
			}
			node = sub
		}
		node[path[len(path)-1]] = v
	}
	return tree
}
