package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hpungsan/miniwriter/internal/db"
	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/logging"
)

// EntryTypeSave is the only mutation kind the queue carries.
const EntryTypeSave = "save"

// Entry is one undelivered save request.
type Entry struct {
	Type          string        `json:"type"`
	DraftIdentity string        `json:"draftId"`
	Payload       draft.Payload `json:"payload"`
	EnqueuedAt    string        `json:"timestamp"`
}

// Identity returns the entry's draft identity.
func (e Entry) Identity() draft.Identity {
	return draft.ParseIdentity(e.DraftIdentity)
}

// Queue is the ordered list of pending mutations, at most one per draft identity.
type Queue struct {
	state  db.State
	drafts *DraftStore
	log    *slog.Logger
	now    func() time.Time
}

// NewQueue creates a Queue. Enqueue marks drafts dirty through drafts and
// stamps entries with now, or time.Now when nil.
func NewQueue(state db.State, drafts *DraftStore, logger *slog.Logger, now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{
		state:  state,
		drafts: drafts,
		log:    logging.OrDiscard(logger),
		now:    now,
	}
}

// Enqueue records payload for delivery. An existing entry for the same identity is
// replaced in place, so its order relative to other identities is unchanged.
// The corresponding draft is marked dirty in the same transaction.
func (q *Queue) Enqueue(ctx context.Context, payload draft.Payload) (Entry, error) {
	id := draft.ResolvePayloadIdentity(payload)
	if id.IsZero() {
		return Entry{}, errors.NewInvalidRequest("payload has no identity")
	}

	entry := Entry{
		Type:          EntryTypeSave,
		DraftIdentity: id.String(),
		Payload:       payload,
		EnqueuedAt:    draft.FormatTime(q.now()),
	}

	err := q.state.Update(ctx, func(tx db.Tx) error {
		entries, err := q.readTx(tx)
		if err != nil {
			return err
		}

		replaced := false
		for i := range entries {
			if entries[i].DraftIdentity == entry.DraftIdentity {
				entries[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, entry)
		}
		if err := q.writeTx(tx, entries); err != nil {
			return err
		}

		d, ok, err := q.drafts.getTx(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return q.drafts.putTx(tx, draft.FromPayload(payload))
		}
		d.Dirty = true
		return q.drafts.putTx(tx, d)
	})
	if err != nil {
		return Entry{}, err
	}

	q.log.Debug("queued save", "identity", entry.DraftIdentity)
	return entry, nil
}

// Drain returns the queue oldest first without modifying it.
func (q *Queue) Drain(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := q.state.View(ctx, func(tx db.Tx) error {
		var err error
		entries, err = q.readTx(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ReplaceAll persists entries as the new queue contents.
func (q *Queue) ReplaceAll(ctx context.Context, entries []Entry) error {
	return q.state.Update(ctx, func(tx db.Tx) error {
		return q.writeTx(tx, entries)
	})
}

// Remove drops the entries for the given identities, if queued.
func (q *Queue) Remove(ctx context.Context, ids ...draft.Identity) error {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !id.IsZero() {
			drop[id.String()] = true
		}
	}
	if len(drop) == 0 {
		return nil
	}

	return q.state.Update(ctx, func(tx db.Tx) error {
		entries, err := q.readTx(tx)
		if err != nil {
			return err
		}
		kept := make([]Entry, 0, len(entries))
		for _, e := range entries {
			if !drop[e.DraftIdentity] {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(entries) {
			return nil
		}
		return q.writeTx(tx, kept)
	})
}

// Size returns the number of queued entries.
func (q *Queue) Size(ctx context.Context) (int, error) {
	entries, err := q.Drain(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// readTx loads the queue. Corrupt data reads as an empty queue.
func (q *Queue) readTx(tx db.Tx) ([]Entry, error) {
	data, ok, err := tx.Get(queueKey)
	if err != nil || !ok {
		return []Entry{}, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		q.log.Warn("ignoring corrupt queue", "error", errors.NewCorruptState(queueKey, err))
		return []Entry{}, nil
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func (q *Queue) writeTx(tx db.Tx, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.NewInternal(err)
	}
	return tx.Put(queueKey, data)
}
