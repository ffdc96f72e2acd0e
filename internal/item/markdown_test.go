package item

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		name      string
		lines     []string
		wantTitle string
		wantBody  []string
		wantOK    bool
	}{
		{"heading", []string{"# Hello", "World"}, "Hello", []string{"World"}, true},
		{"underline", []string{"Hello", "===", "World"}, "Hello", []string{"World"}, true},
		{"long underline", []string{"Hello", "=========", "", "World"}, "Hello", []string{"", "World"}, true},
		{"no title", []string{"Hello", "World"}, "", []string{"Hello", "World"}, false},
		{"sub heading is not a title", []string{"## Hello", "World"}, "", []string{"## Hello", "World"}, false},
		{"single line", []string{"Hello"}, "", []string{"Hello"}, false},
		{"empty", nil, "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body, ok := SplitTitle(tt.lines)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTitle, title)
			if diff := cmp.Diff(tt.wantBody, body); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadLinesKeepsIndentation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title  \r\n\n- a\n    - nested\t\n"), 0o644))

	lines, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"# Title", "", "- a", "    - nested"}, lines)
	assert.Equal(t, "# Title\n\n- a\n    - nested", JoinBody(lines))
}

func TestReadLinesMissingFile(t *testing.T) {
	_, err := ReadLines(filepath.Join(t.TempDir(), "missing.md"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSplitTags(t *testing.T) {
	got := SplitTags([]string{"go,cli", " qiita ", "a,,b"})
	assert.Equal(t, []string{"go", "cli", "qiita", "a", "b"}, got)
	assert.Empty(t, SplitTags(nil))
}

func TestParseFrontMatterYAML(t *testing.T) {
	content := []byte("---\ntitle: Hello\ntags: [go, cli]\nprivate: false\n---\nBody text\n")

	fm, body, found, err := ParseFrontMatter(content)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Hello", fm.Title)
	assert.Equal(t, []string{"go", "cli"}, fm.Tags)
	require.NotNil(t, fm.Private)
	assert.False(t, *fm.Private)
	assert.Equal(t, "Body text\n", string(body))
}

func TestParseFrontMatterTOML(t *testing.T) {
	content := []byte("+++\ntitle = \"Hello\"\ntags = [\"go\"]\n+++\nBody\n")

	fm, body, found, err := ParseFrontMatter(content)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Hello", fm.Title)
	assert.Equal(t, []string{"go"}, fm.Tags)
	assert.Nil(t, fm.Private)
	assert.Equal(t, "Body\n", string(body))
}

func TestParseFrontMatterAbsent(t *testing.T) {
	content := []byte("# Title\n---\ntext\n")
	_, body, found, err := ParseFrontMatter(content)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, content, body)
}

func TestParseFrontMatterUnclosed(t *testing.T) {
	content := []byte("---\ntitle: x\nno closing line\n")
	_, body, found, err := ParseFrontMatter(content)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, content, body)
}

func TestParseFrontMatterInvalid(t *testing.T) {
	_, _, _, err := ParseFrontMatter([]byte("---\ntitle: [unclosed\n---\nbody\n"))
	assert.Error(t, err)
}
