package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// titleRefPrefix marks a bare Wikipedia title in a reference list.
const titleRefPrefix = "wikipedia:"

// sourceManifest is the YAML form of a reference list:
//
//	sources:
//	  - https://it.wikipedia.org/wiki/Giochi_olimpici
//	titles:
//	  - Roma
//	files:
//	  - docs/
type sourceManifest struct {
	Sources []string `yaml:"sources"`
	Titles  []string `yaml:"titles"`
	Files   []string `yaml:"files"`
}

// readReferences collects the references from an input file and the
// command arguments. A .yaml or .yml input is read as a source manifest;
// any other file lists one reference per line, with # comments.
func readReferences(input string, args []string) ([]string, error) {
	var refs []string
	if input != "" {
		var (
			fromFile []string
			err      error
		)
		switch strings.ToLower(filepath.Ext(input)) {
		case ".yaml", ".yml":
			fromFile, err = readManifest(input)
		default:
			fromFile, err = readReferenceList(input)
		}
		if err != nil {
			return nil, err
		}
		refs = append(refs, fromFile...)
	}
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			refs = append(refs, a)
		}
	}
	return refs, nil
}

func readReferenceList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference list: %w", err)
	}
	defer f.Close()

	var refs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read reference list: %w", err)
	}
	return refs, nil
}

func readManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m sourceManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	refs := make([]string, 0, len(m.Sources)+len(m.Titles)+len(m.Files))
	refs = append(refs, m.Sources...)
	for _, t := range m.Titles {
		refs = append(refs, titleRefPrefix+t)
	}
	base := filepath.Dir(path)
	for _, f := range m.Files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(base, f)
		}
		refs = append(refs, f)
	}
	return refs, nil
}
