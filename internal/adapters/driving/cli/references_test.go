package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadReferences(t *testing.T) {
	t.Run("arguments only", func(t *testing.T) {
		refs, err := readReferences("", []string{"wikipedia:Roma", "  ", "notes.md"})

		require.NoError(t, err)
		assert.Equal(t, []string{"wikipedia:Roma", "notes.md"}, refs)
	})

	t.Run("reference list skips blanks and comments", func(t *testing.T) {
		list := writeFile(t, "urls.txt", "# Olympics\n  https://it.wikipedia.org/wiki/Atene  \n\n#skip\nwikipedia:Roma\n")

		refs, err := readReferences(list, []string{"extra.txt"})

		require.NoError(t, err)
		assert.Equal(t, []string{"https://it.wikipedia.org/wiki/Atene", "wikipedia:Roma", "extra.txt"}, refs)
	})

	t.Run("manifest", func(t *testing.T) {
		manifest := writeFile(t, "sources.yml", `
sources:
  - https://it.wikipedia.org/wiki/Atene
titles:
  - Giochi olimpici
files:
  - notes/
  - /srv/docs/a.pdf
`)

		refs, err := readReferences(manifest, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://it.wikipedia.org/wiki/Atene",
			"wikipedia:Giochi olimpici",
			filepath.Join(filepath.Dir(manifest), "notes"),
			"/srv/docs/a.pdf",
		}, refs)
	})

	t.Run("empty manifest", func(t *testing.T) {
		refs, err := readReferences(writeFile(t, "empty.yaml", ""), nil)

		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("invalid manifest", func(t *testing.T) {
		_, err := readReferences(writeFile(t, "bad.yaml", "sources: [unclosed"), nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse manifest")
	})

	t.Run("missing list", func(t *testing.T) {
		_, err := readReferences(filepath.Join(t.TempDir(), "missing.txt"), nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
