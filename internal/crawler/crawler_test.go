package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
}

func TestCrawler_ScanPages(t *testing.T) {
	root := t.TempDir()
	pages := filepath.Join(root, "pages")
	syls := filepath.Join(root, "text")

	touch(t, filepath.Join(pages, "pitches_f002.json"))
	touch(t, filepath.Join(pages, "vol2", "pitches_f001.json"))
	touch(t, filepath.Join(pages, "pitches_f003.json"))
	touch(t, filepath.Join(pages, "notes.json"))
	touch(t, filepath.Join(pages, ".git", "pitches_hidden.json"))
	touch(t, filepath.Join(syls, "f001.json"))
	touch(t, filepath.Join(syls, "syls_f002.json"))

	jobs, err := NewCrawler().ScanPages(pages, syls)
	require.NoError(t, err)

	t.Run("Discovers page files in key order", func(t *testing.T) {
		require.Len(t, jobs, 3)
		assert.Equal(t, []string{"f001", "f002", "f003"}, []string{jobs[0].Key, jobs[1].Key, jobs[2].Key})
		assert.Equal(t, filepath.Join(pages, "vol2", "pitches_f001.json"), jobs[0].PagePath)
	})

	t.Run("Pairs syllable files", func(t *testing.T) {
		assert.Equal(t, filepath.Join(syls, "f001.json"), jobs[0].SyllablesPath)
		assert.Equal(t, filepath.Join(syls, "syls_f002.json"), jobs[1].SyllablesPath)
		assert.Empty(t, jobs[2].SyllablesPath)
	})
}

func TestCrawler_SyllablesDefaultToPageDir(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "pitches_a.json"))
	touch(t, filepath.Join(dir, "syls_a.json"))

	jobs, err := NewCrawler().ScanPages(dir, "")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, filepath.Join(dir, "syls_a.json"), jobs[0].SyllablesPath)
}

func TestCrawler_MissingDir(t *testing.T) {
	_, err := NewCrawler().ScanPages(filepath.Join(t.TempDir(), "nope"), "")
	assert.Error(t, err)
}
