package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFiles(t *testing.T) {
	dir := t.TempDir()
	login := writeFile(t, dir, "docs/login.md", "x")
	api := writeFile(t, dir, "docs/api/petstore.yaml", "x")
	img := writeFile(t, dir, "docs/api/diagram.png", "x")
	notes := writeFile(t, dir, "notes.txt", "x")

	t.Run("recursive glob", func(t *testing.T) {
		got, err := ResolveFiles([]string{filepath.Join(dir, "docs", "**", "*.md")}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{login}, got)
	})

	t.Run("directory filtered by extension", func(t *testing.T) {
		got, err := ResolveFiles([]string{filepath.Join(dir, "docs")}, []string{".md", ".YAML"})
		require.NoError(t, err)
		assert.Equal(t, []string{api, login}, got)
	})

	t.Run("explicit file bypasses extension filter", func(t *testing.T) {
		got, err := ResolveFiles([]string{img}, []string{".md"})
		require.NoError(t, err)
		assert.Equal(t, []string{img}, got)
	})

	t.Run("deduplicated and sorted", func(t *testing.T) {
		got, err := ResolveFiles([]string{notes, login, filepath.Join(dir, "**", "*.md")}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{login, notes}, got)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := ResolveFiles([]string{filepath.Join(dir, "nope.md")}, nil)
		assert.Error(t, err)
	})

	t.Run("glob with no matches", func(t *testing.T) {
		got, err := ResolveFiles([]string{filepath.Join(dir, "**", "*.pdf")}, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMatchAny(t *testing.T) {
	patterns := []string{"**/*.md", "specs/*.yaml"}

	assert.True(t, MatchAny(patterns, "docs/deep/login.md"))
	assert.True(t, MatchAny(patterns, "specs/petstore.yaml"))
	assert.False(t, MatchAny(patterns, "specs/v1/petstore.yaml"))
	assert.False(t, MatchAny(patterns, "notes.txt"))
	assert.False(t, MatchAny(nil, "login.md"))
}

func TestValidatePatterns(t *testing.T) {
	assert.NoError(t, ValidatePatterns([]string{"**/*.md", "docs/{a,b}.txt"}))
	assert.Error(t, ValidatePatterns([]string{"docs/[unclosed"}))
}
