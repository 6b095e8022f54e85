package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/miniwriter/internal/db"
	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/errors"
)

func newQueue(t *testing.T) (*Queue, *DraftStore, db.State) {
	t.Helper()
	st := openState(t)
	drafts := NewDraftStore(st, nil)
	return NewQueue(st, drafts, nil, nil), drafts, st
}

func identities(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.DraftIdentity
	}
	return out
}

func TestQueue_EnqueueFIFO(t *testing.T) {
	ctx := context.Background()
	q, _, _ := newQueue(t)

	for _, r := range []string{"/a", "/b", "/c"} {
		_, err := q.Enqueue(ctx, draft.Payload{Route: r, Title: r})
		require.NoError(t, err)
	}

	entries, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"/a", "/b", "/c"}, identities(entries))
	require.Equal(t, EntryTypeSave, entries[0].Type)
	require.NotEmpty(t, entries[0].EnqueuedAt)

	// Drain is read-only.
	n, err := q.Size(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestQueue_DedupReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	q, _, _ := newQueue(t)

	_, err := q.Enqueue(ctx, draft.Payload{Route: "/a", Title: "A", Content: "first"})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, draft.Payload{Route: "/b", Title: "B"})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, draft.Payload{Route: "/a", Title: "A", Content: "second"})
	require.NoError(t, err)

	entries, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"/a", "/b"}, identities(entries))
	require.Equal(t, "second", entries[0].Payload.Content)
}

func TestQueue_IdentityFallback(t *testing.T) {
	ctx := context.Background()
	q, _, _ := newQueue(t)

	e, err := q.Enqueue(ctx, draft.Payload{ID: "tmp-stable", TempID: "tmp-other", Title: "x"})
	require.NoError(t, err)
	require.Equal(t, "tmp-stable", e.DraftIdentity)

	e, err = q.Enqueue(ctx, draft.Payload{TempID: "tmp-only", Title: "y"})
	require.NoError(t, err)
	require.Equal(t, draft.Temporary("tmp-only"), e.Identity())

	_, err = q.Enqueue(ctx, draft.Payload{Title: "z"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestQueue_EnqueueMarksDraftDirty(t *testing.T) {
	ctx := context.Background()
	q, drafts, _ := newQueue(t)

	d := newTempDraft(t, "Hello")
	require.NoError(t, drafts.Put(ctx, d))

	_, err := q.Enqueue(ctx, d.Payload())
	require.NoError(t, err)

	got, ok, err := drafts.Get(ctx, d.Identity())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Dirty)
}

func TestQueue_EnqueueWithoutDraftCreatesOne(t *testing.T) {
	ctx := context.Background()
	q, drafts, _ := newQueue(t)

	_, err := q.Enqueue(ctx, draft.Payload{Route: "/orphan", Title: "Orphan", Content: "c"})
	require.NoError(t, err)

	got, ok, err := drafts.Get(ctx, draft.Route("/orphan"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Dirty)
	require.Equal(t, "c", got.Content)
}

func TestQueue_ReplaceAllAndRemove(t *testing.T) {
	ctx := context.Background()
	q, _, _ := newQueue(t)

	for _, r := range []string{"/a", "/b", "/c"} {
		_, err := q.Enqueue(ctx, draft.Payload{Route: r, Title: r})
		require.NoError(t, err)
	}
	entries, err := q.Drain(ctx)
	require.NoError(t, err)

	require.NoError(t, q.ReplaceAll(ctx, entries[1:]))
	require.NoError(t, q.Remove(ctx, draft.Route("/c"), draft.Route("/missing")))

	entries, err = q.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"/b"}, identities(entries))
}

func TestQueue_CorruptReadsEmpty(t *testing.T) {
	ctx := context.Background()
	q, _, st := newQueue(t)

	require.NoError(t, st.Update(ctx, func(tx db.Tx) error {
		return tx.Put(queueKey, []byte(`{"oops":`))
	}))

	entries, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)

	// Enqueue overwrites the corrupt value.
	_, err = q.Enqueue(ctx, draft.Payload{Route: "/a", Title: "A"})
	require.NoError(t, err)
	n, err := q.Size(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestQueue_EnqueueUsesInjectedClock(t *testing.T) {
	ctx := context.Background()
	st := openState(t)
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	q := NewQueue(st, NewDraftStore(st, nil), nil, func() time.Time { return at })

	entry, err := q.Enqueue(ctx, draft.Payload{Route: "/a", Title: "a"})
	require.NoError(t, err)
	require.Equal(t, "2024-06-01T09:00:00.000Z", entry.EnqueuedAt)
}
