package pagerepo

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/remote"
)

// clock returns a Now func advancing one second per call.
func clock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newRepo() *Repository {
	return New(Options{Now: clock()})
}

func mustSave(t *testing.T, r *Repository, p draft.Payload) remote.SaveReply {
	t.Helper()
	reply, err := r.Save(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, remote.StatusOK, reply.Status, reply.Message)
	return reply
}

func TestSave_CreatesPage(t *testing.T) {
	r := newRepo()
	reply := mustSave(t, r, draft.Payload{Title: "Hello World", Content: "Body", Tags: []string{" a ", "b"}, Date: "2024-04-01T10:00:00.000Z"})

	require.Equal(t, "/hello-world", reply.Route)
	require.Equal(t, "hello-world", reply.Slug)
	require.Equal(t, "/", reply.ParentRoute)
	require.Equal(t, "Hello World", reply.Title)

	stored, ok := r.Stored(reply.Route)
	require.True(t, ok)
	sum := md5.Sum(stored)
	require.Equal(t, hex.EncodeToString(sum[:]), reply.Fingerprint)
	require.True(t, strings.HasPrefix(string(stored), "---\ntitle: Hello World\n"))
	require.True(t, strings.HasSuffix(string(stored), "---\n\nBody\n"))

	doc, err := r.GetDocument(context.Background(), reply.Route)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, doc.Tags)
	require.Equal(t, "Body", doc.Content)
	require.Equal(t, "2024-04-01T10:00:00.000Z", doc.Date)
	require.Equal(t, reply.Fingerprint, doc.Fingerprint)
}

func TestSave_Validation(t *testing.T) {
	r := newRepo()
	ctx := context.Background()

	reply, err := r.Save(ctx, draft.Payload{Title: "   "})
	require.NoError(t, err)
	require.Equal(t, remote.StatusError, reply.Status)
	require.Equal(t, MsgTitleRequired, reply.Message)

	reply, err = r.Save(ctx, draft.Payload{Title: "x", ParentRoute: "/missing"})
	require.NoError(t, err)
	require.Equal(t, MsgParentNotFound, reply.Message)
}

func TestSave_UniqueSlugsForNewPages(t *testing.T) {
	r := newRepo()
	blog := mustSave(t, r, draft.Payload{Title: "Blog"})

	first := mustSave(t, r, draft.Payload{Title: "Post", ParentRoute: blog.Route})
	second := mustSave(t, r, draft.Payload{Title: "Post", ParentRoute: blog.Route})
	third := mustSave(t, r, draft.Payload{Title: "Post", ParentRoute: "blog/"})

	require.Equal(t, "/blog/post", first.Route)
	require.Equal(t, "/blog/post-1", second.Route)
	require.Equal(t, "/blog/post-2", third.Route)
}

func TestSave_Conflict(t *testing.T) {
	r := newRepo()
	ctx := context.Background()

	v1 := mustSave(t, r, draft.Payload{Title: "Doc", Content: "one"})
	v2 := mustSave(t, r, draft.Payload{Route: v1.Route, Title: "Doc", Content: "two", ExpectedFingerprint: v1.Fingerprint})
	require.NotEqual(t, v1.Fingerprint, v2.Fingerprint)

	stale := draft.Payload{Route: v1.Route, Title: "Doc", Content: "mine", ExpectedFingerprint: v1.Fingerprint}
	reply, err := r.Save(ctx, stale)
	require.NoError(t, err)
	require.Equal(t, remote.StatusConflict, reply.Status)
	require.Equal(t, v2.Fingerprint, reply.Fingerprint)

	stale.Force = true
	stale.ExpectedFingerprint = reply.Fingerprint
	forced := mustSave(t, r, stale)

	doc, err := r.GetDocument(ctx, forced.Route)
	require.NoError(t, err)
	require.Equal(t, "mine", doc.Content)
}

func TestSave_NoExpectedFingerprintNeverConflicts(t *testing.T) {
	r := newRepo()
	v1 := mustSave(t, r, draft.Payload{Title: "Doc"})
	mustSave(t, r, draft.Payload{Route: v1.Route, Title: "Doc", Content: "blind write"})
}

func TestSave_Rename(t *testing.T) {
	r := newRepo()
	ctx := context.Background()

	parent := mustSave(t, r, draft.Payload{Title: "Section"})
	mustSave(t, r, draft.Payload{Title: "Child", ParentRoute: parent.Route})
	mustSave(t, r, draft.Payload{Title: "Taken"})

	renamed := mustSave(t, r, draft.Payload{Route: parent.Route, Title: "Renamed Section", ExpectedFingerprint: parent.Fingerprint})
	require.Equal(t, "/renamed-section", renamed.Route)

	_, err := r.GetDocument(ctx, parent.Route)
	require.True(t, errors.Is(err, errors.ErrNotFound))

	moved, err := r.GetDocument(ctx, "/renamed-section/child")
	require.NoError(t, err)
	require.Equal(t, "/renamed-section", moved.ParentRoute)

	reply, err := r.Save(ctx, draft.Payload{Route: renamed.Route, Title: "Taken"})
	require.NoError(t, err)
	require.Equal(t, MsgTargetExists, reply.Message)
}

func TestDuplicate(t *testing.T) {
	r := New(Options{Now: clock(), ConflictPrefix: "(conflict)"})
	ctx := context.Background()

	src := mustSave(t, r, draft.Payload{Title: "Notes", Content: "remote body", Tags: []string{"t"}})
	dup, err := r.Duplicate(ctx, src.Route)
	require.NoError(t, err)
	require.Equal(t, remote.StatusOK, dup.Status)
	require.Equal(t, "(conflict) Notes", dup.Title)
	require.Equal(t, "/conflict-notes", dup.Route)

	doc, err := r.GetDocument(ctx, dup.Route)
	require.NoError(t, err)
	require.Equal(t, "remote body", doc.Content)
	require.Equal(t, dup.Fingerprint, doc.Fingerprint)

	again, err := r.Duplicate(ctx, src.Route)
	require.NoError(t, err)
	require.Equal(t, "/conflict-notes-1", again.Route)

	missing, err := r.Duplicate(ctx, "/nope")
	require.NoError(t, err)
	require.Equal(t, remote.StatusError, missing.Status)
	require.Equal(t, remote.MessagePageNotFound, missing.Message)
}

func TestList_SortedNewestFirst(t *testing.T) {
	r := newRepo()
	mustSave(t, r, draft.Payload{Title: "First"})
	mustSave(t, r, draft.Payload{Title: "Second"})
	mustSave(t, r, draft.Payload{Title: "Third"})

	pages, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, pages, 3)
	require.Equal(t, []string{"/third", "/second", "/first"}, []string{pages[0].Route, pages[1].Route, pages[2].Route})
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":     "hello-world",
		"  Go & Offline ": "go-offline",
		"already-slug":    "already-slug",
		"!!!":             "item",
		"":                "item",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
