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
	"github.com/hpungsan/miniwriter/internal/remote"
)

// Catalog caches the last fetched remote page list so listing works offline.
type Catalog struct {
	state db.State
	log   *slog.Logger
}

type catalogRecord struct {
	FetchedAt string               `json:"fetched_at"`
	Pages     []remote.PageSummary `json:"pages"`
}

// NewCatalog creates a Catalog cache on state.
func NewCatalog(state db.State, logger *slog.Logger) *Catalog {
	return &Catalog{state: state, log: logging.OrDiscard(logger)}
}

// Save replaces the cached list.
func (c *Catalog) Save(ctx context.Context, pages []remote.PageSummary, fetchedAt time.Time) error {
	rec := catalogRecord{FetchedAt: draft.FormatTime(fetchedAt), Pages: pages}
	if rec.Pages == nil {
		rec.Pages = []remote.PageSummary{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.NewInternal(err)
	}
	return c.state.Update(ctx, func(tx db.Tx) error {
		return tx.Put(catalogKey, data)
	})
}

// Load returns the cached list and when it was fetched. A missing or corrupt
// cache yields an empty list and an empty timestamp.
func (c *Catalog) Load(ctx context.Context) ([]remote.PageSummary, string, error) {
	var rec catalogRecord
	err := c.state.View(ctx, func(tx db.Tx) error {
		data, ok, err := tx.Get(catalogKey)
		if err != nil || !ok {
			return err
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			c.log.Warn("ignoring corrupt catalog cache", "error", errors.NewCorruptState(catalogKey, err))
			rec = catalogRecord{}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	if rec.Pages == nil {
		rec.Pages = []remote.PageSummary{}
	}
	return rec.Pages, rec.FetchedAt, nil
}
