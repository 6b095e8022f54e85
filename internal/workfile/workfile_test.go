package workfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/draftsync"
	"github.com/hpungsan/miniwriter/internal/errors"
)

func TestRenderParse(t *testing.T) {
	d := &draft.Draft{
		Title:       "Hello",
		Date:        "2024-06-01T09:00:00.000Z",
		Published:   true,
		Tags:        []string{"a", "b"},
		ParentRoute: "/blog",
		Content:     "Body text\n\nSecond paragraph",
	}
	data, err := Render(d)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "---\n"))

	ch, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, "Hello", *ch.Title)
	require.Equal(t, d.Date, *ch.Date)
	require.True(t, *ch.Published)
	require.Equal(t, []string{"a", "b"}, *ch.Tags)
	require.Equal(t, "/blog", *ch.ParentRoute)
	require.Equal(t, d.Content, *ch.Content)
}

func TestParse_NoHeader(t *testing.T) {
	ch, err := Parse([]byte("just text"))
	require.NoError(t, err)
	require.Equal(t, "just text", *ch.Content)
	require.Equal(t, "", *ch.Title)
	require.Nil(t, ch.ParentRoute)
	require.Empty(t, *ch.Tags)
}

func TestParse_Unterminated(t *testing.T) {
	_, err := Parse([]byte("---\ntitle: x\n"))
	require.Error(t, err)
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "post.md")
	require.NoError(t, Write(path, &draft.Draft{Title: "T", Content: "c"}))

	ch, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, "T", *ch.Title)
	require.Equal(t, "c", *ch.Content)
}

func TestFileName(t *testing.T) {
	require.Equal(t, "hello.md", FileName(&draft.Draft{Slug: "hello", ID: "/hello"}))
	require.Equal(t, "tmp-01abc.md", FileName(&draft.Draft{ID: "tmp-01abc"}))
	require.Equal(t, "draft.md", FileName(&draft.Draft{}))
}

type recorder struct {
	mu      sync.Mutex
	changes []draftsync.Changes
}

func (r *recorder) Update(ch draftsync.Changes) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
}

func (r *recorder) lastContent() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return ""
	}
	return *r.changes[len(r.changes)-1].Content
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.md")
	require.NoError(t, Write(path, &draft.Draft{Title: "T", Content: "v1"}))

	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, rec, nil) }()

	updated, err := Render(&draft.Draft{Title: "T", Content: "v2"})
	require.NoError(t, err)

	// Rewrite until the watcher is registered and reports the change.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, updated, 0644)
		return rec.lastContent() == "v2"
	}, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: [broken\n---\n"), 0644))
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, "v2", rec.lastContent(), "unparseable states are skipped")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWrite_RejectsBadPaths(t *testing.T) {
	dir := t.TempDir()
	d := &draft.Draft{Title: "T"}

	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"traversal", dir + "/../post.md"},
		{"wrong extension", filepath.Join(dir, "post.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Write(tt.path, d)
			require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestWrite_RefusesSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.md")
	require.NoError(t, os.WriteFile(target, []byte("keep"), 0644))
	link := filepath.Join(dir, "link.md")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	err := Write(link, &draft.Draft{Title: "T"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)

	_, err = Read(link)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "keep", string(data))
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "gone.md"))
	require.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
}
