package draftfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/blogdraft/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *Document
	}{
		{
			name:  "full front matter",
			input: "---\nid: abc\ntitle: \"  Hello  \"\ntags: [Go, web, go]\n---\n\n  Body text.\n\n",
			want: &Document{ID: "abc", Draft: domain.Draft{
				Title: "Hello", Content: "Body text.", Tags: []string{"go", "web"},
			}},
		},
		{
			name:  "comma separated tags",
			input: "---\ntitle: Hello\ntags: \"go, , Web\"\n---\nBody",
			want:  &Document{Draft: domain.Draft{Title: "Hello", Content: "Body", Tags: []string{"go", "web"}}},
		},
		{
			name:  "crlf line endings",
			input: "---\r\ntitle: Hello\r\n---\r\nBody\r\n",
			want:  &Document{Draft: domain.Draft{Title: "Hello", Content: "Body", Tags: []string{}}},
		},
		{
			name:  "no front matter",
			input: "Just some notes\n",
			want:  &Document{Draft: domain.Draft{Content: "Just some notes", Tags: []string{}}},
		},
		{
			name:  "empty front matter",
			input: "---\n---\nBody",
			want:  &Document{Draft: domain.Draft{Content: "Body", Tags: []string{}}},
		},
		{
			name:  "empty file",
			input: "",
			want:  &Document{Draft: domain.Draft{Tags: []string{}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("---\ntitle: Hello\nBody without a closing fence"))
	require.ErrorIs(t, err, ErrUnterminated)

	_, err = Parse([]byte("---\ntitle: [unclosed\n---\nBody"))
	require.ErrorContains(t, err, "parsing front matter")

	_, err = Parse([]byte("---\ntags:\n  a: b\n---\nBody"))
	require.ErrorContains(t, err, "tags must be a list")
}

func TestEncode_RoundTrip(t *testing.T) {
	doc := &Document{ID: "abc", Draft: domain.Draft{Title: "Hello", Content: "Body text.", Tags: []string{"go"}}}

	data, err := Encode(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "---\nid: abc\ntitle: Hello\ntags:\n"))
	assert.True(t, strings.HasSuffix(string(data), "---\n\nBody text.\n"))

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestSetID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "adds id first and keeps other keys",
			input: "---\ntitle: Hello\nauthor_note: keep me\n---\n\nBody\n",
			want:  "---\nid: new-id\ntitle: Hello\nauthor_note: keep me\n---\n\nBody\n",
		},
		{
			name:  "replaces existing id",
			input: "---\ntitle: Hello\nid: old-id\n---\nBody\n",
			want:  "---\ntitle: Hello\nid: new-id\n---\nBody\n",
		},
		{
			name:  "creates front matter",
			input: "Body\n",
			want:  "---\nid: new-id\n---\n\nBody\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "post.md")
			require.NoError(t, os.WriteFile(path, []byte(tt.input), 0o600))

			require.NoError(t, SetID(path, "new-id"))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temp file left behind")
		})
	}
}

func TestReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.md")
	doc := &Document{Draft: domain.Draft{Title: "Hello", Content: "Body", Tags: []string{}}}

	require.NoError(t, Write(path, doc))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	_, err = Read(filepath.Join(t.TempDir(), "missing.md"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.md")
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: First\n---\nBody"), 0o600))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	revisions := make(chan *Document, 16)
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx, func(d *Document) { revisions <- d }) }()

	next := func() *Document {
		t.Helper()

		select {
		case d := <-revisions:
			return d
		case <-time.After(5 * time.Second):
			t.Fatal("no revision received")
			return nil
		}
	}

	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: Second\n---\nBody"), 0o600))
	assert.Equal(t, "Second", next().Draft.Title)

	// Atomic replace, as SetID and most editors do it.
	require.NoError(t, Write(path, &Document{ID: "abc", Draft: domain.Draft{Title: "Third", Content: "Body"}}))

	d := next()
	assert.Equal(t, "Third", d.Draft.Title)
	assert.Equal(t, "abc", d.ID)

	// Unparseable revisions are skipped, the watcher keeps going.
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: broken"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: Fourth\n---\nBody"), 0o600))
	assert.Equal(t, "Fourth", next().Draft.Title)

	// Other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.md"), []byte("x"), 0o600))

	require.NoError(t, w.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	close(revisions)

	for d := range revisions {
		assert.Equal(t, "Fourth", d.Draft.Title)
	}
}
