package draftsync

import (
	"context"

	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/merge"
	"github.com/hpungsan/miniwriter/internal/remote"
)

// RefreshCatalog fetches the remote page list and caches it locally.
func (c *Controller) RefreshCatalog(ctx context.Context) ([]remote.PageSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Online() {
		return nil, errors.NewUnreachable(nil)
	}
	return c.fetchCatalogLocked(ctx)
}

func (c *Controller) fetchCatalogLocked(ctx context.Context) ([]remote.PageSummary, error) {
	pages, err := c.gw.List(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrUnreachable) {
			c.markOffline(err)
		}
		return nil, err
	}
	if err := c.catalog.Save(ctx, pages, c.now()); err != nil {
		return nil, err
	}
	return pages, nil
}

// refreshCatalogLocked refetches the catalog after a save or flush; failures
// leave the cached list in place.
func (c *Controller) refreshCatalogLocked(ctx context.Context) {
	if !c.Online() {
		return
	}
	if _, err := c.fetchCatalogLocked(ctx); err != nil {
		c.log.Warn("catalog refresh failed", "error", err)
	}
}

// List merges the cached remote catalog with the local drafts.
// It reads fresh snapshots and never writes.
func (c *Controller) List(ctx context.Context) ([]merge.Item, error) {
	pages, _, err := c.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	drafts, err := c.drafts.ListIndexed(ctx)
	if err != nil {
		return nil, err
	}
	return merge.Merge(pages, drafts), nil
}
