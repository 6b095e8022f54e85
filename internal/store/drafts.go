package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hpungsan/miniwriter/internal/db"
	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/logging"
)

// DraftStore persists drafts by identity plus an index of known identities.
// A key is in the index iff a record exists; both are written in one transaction.
type DraftStore struct {
	state db.State
	log   *slog.Logger
}

// NewDraftStore creates a DraftStore on state. A nil logger discards.
func NewDraftStore(state db.State, logger *slog.Logger) *DraftStore {
	return &DraftStore{state: state, log: logging.OrDiscard(logger)}
}

// Put writes d under its current identity and indexes it.
func (s *DraftStore) Put(ctx context.Context, d *draft.Draft) error {
	return s.state.Update(ctx, func(tx db.Tx) error {
		return s.putTx(tx, d)
	})
}

// Get returns the draft for id. Missing and corrupt records both report ok=false.
func (s *DraftStore) Get(ctx context.Context, id draft.Identity) (*draft.Draft, bool, error) {
	var (
		d  *draft.Draft
		ok bool
	)
	err := s.state.View(ctx, func(tx db.Tx) error {
		var err error
		d, ok, err = s.getTx(tx, id)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return d, ok, nil
}

// Delete removes the record for id and its index entry.
func (s *DraftStore) Delete(ctx context.Context, id draft.Identity) error {
	return s.state.Update(ctx, func(tx db.Tx) error {
		return s.deleteTx(tx, id)
	})
}

// Migrate stores d under its identity and removes old when it differs.
// Both steps commit together, so the two keys are never populated at once.
func (s *DraftStore) Migrate(ctx context.Context, old draft.Identity, d *draft.Draft) error {
	return s.state.Update(ctx, func(tx db.Tx) error {
		return s.migrateTx(tx, old, d)
	})
}

// ListIndexed returns all indexed drafts in index order, skipping absent or corrupt records.
func (s *DraftStore) ListIndexed(ctx context.Context) ([]*draft.Draft, error) {
	var out []*draft.Draft
	err := s.state.View(ctx, func(tx db.Tx) error {
		ids, _, err := s.indexTx(tx)
		if err != nil {
			return err
		}
		out = make([]*draft.Draft, 0, len(ids))
		for _, id := range ids {
			d, ok, err := s.getTx(tx, id)
			if err != nil {
				return err
			}
			if ok {
				out = append(out, d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DraftStore) putTx(tx db.Tx, d *draft.Draft) error {
	id := d.Identity()
	if id.IsZero() {
		return errors.NewInvalidRequest("draft has no identity")
	}
	data, err := json.Marshal(d)
	if err != nil {
		return errors.NewInternal(err)
	}

	// Read the index before the record lands so a rebuild does not already
	// contain the new key.
	ids, stored, err := s.indexTx(tx)
	if err != nil {
		return err
	}
	if err := tx.Put(draftKey(id), data); err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			if stored {
				return nil
			}
			return s.writeIndexTx(tx, ids)
		}
	}
	return s.writeIndexTx(tx, append(ids, id))
}

func (s *DraftStore) getTx(tx db.Tx, id draft.Identity) (*draft.Draft, bool, error) {
	if id.IsZero() {
		return nil, false, nil
	}
	key := draftKey(id)
	data, ok, err := tx.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}
	var d draft.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		s.log.Warn("ignoring corrupt draft record", "key", key, "error", errors.NewCorruptState(key, err))
		return nil, false, nil
	}
	return &d, true, nil
}

func (s *DraftStore) deleteTx(tx db.Tx, id draft.Identity) error {
	if err := tx.Delete(draftKey(id)); err != nil {
		return err
	}
	ids, _, err := s.indexTx(tx)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	return s.writeIndexTx(tx, kept)
}

func (s *DraftStore) migrateTx(tx db.Tx, old draft.Identity, d *draft.Draft) error {
	if err := s.putTx(tx, d); err != nil {
		return err
	}
	if old.IsZero() || old == d.Identity() {
		return nil
	}
	return s.deleteTx(tx, old)
}

// indexTx reads the index. A missing or corrupt index is rebuilt from the
// stored draft keys; stored reports whether the persisted index was usable.
func (s *DraftStore) indexTx(tx db.Tx) (ids []draft.Identity, stored bool, err error) {
	data, ok, err := tx.Get(indexKey)
	if err != nil {
		return nil, false, err
	}
	var raw []string
	if ok {
		if err := json.Unmarshal(data, &raw); err != nil {
			s.log.Warn("rebuilding corrupt draft index", "error", errors.NewCorruptState(indexKey, err))
			raw = nil
			ok = false
		}
	}
	if !ok {
		keys, err := tx.Keys(draftPrefix)
		if err != nil {
			return nil, false, err
		}
		for _, k := range keys {
			raw = append(raw, k[len(draftPrefix):])
		}
	}

	ids = make([]draft.Identity, 0, len(raw))
	for _, r := range raw {
		if id := draft.ParseIdentity(r); !id.IsZero() {
			ids = append(ids, id)
		}
	}
	return ids, ok, nil
}

func (s *DraftStore) writeIndexTx(tx db.Tx, ids []draft.Identity) error {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return errors.NewInternal(err)
	}
	return tx.Put(indexKey, data)
}
