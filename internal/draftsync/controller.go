// Package draftsync orchestrates local drafts, the pending-mutation queue and
// the remote repository: submits, queue flushes, connectivity transitions and
// editing sessions with autosave.
package draftsync

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hpungsan/miniwriter/internal/config"
	"github.com/hpungsan/miniwriter/internal/db"
	"github.com/hpungsan/miniwriter/internal/logging"
	"github.com/hpungsan/miniwriter/internal/remote"
	"github.com/hpungsan/miniwriter/internal/resolve"
	"github.com/hpungsan/miniwriter/internal/store"
)

// Options configures a Controller.
type Options struct {
	// State backs the draft store, queue and catalog cache
	State db.State

	Gateway remote.Gateway

	// Decider answers conflicts during Submit. Nil abandons every conflict.
	Decider resolve.Decider

	Config *config.Config
	Logger *slog.Logger

	// Online is the initial connectivity state
	Online bool

	// Now overrides the clock in tests
	Now func() time.Time
}

// Controller is the single writer of drafts and queue for one editing client.
// Operations that touch the remote are serialized: a flush awaits each entry
// before issuing the next, and no two saves run at once.
type Controller struct {
	mu sync.Mutex

	drafts   *store.DraftStore
	queue    *store.Queue
	catalog  *store.Catalog
	gw       remote.Gateway
	resolver *resolve.Resolver
	decider  resolve.Decider
	cfg      *config.Config
	log      *slog.Logger
	now      func() time.Time

	online atomic.Bool
}

// New creates a Controller.
func New(opts Options) *Controller {
	log := logging.OrDiscard(opts.Logger)
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	decider := opts.Decider
	if decider == nil {
		decider = resolve.Fixed(resolve.Abandon)
	}

	drafts := store.NewDraftStore(opts.State, log)
	c := &Controller{
		drafts:   drafts,
		queue:    store.NewQueue(opts.State, drafts, log, now),
		catalog:  store.NewCatalog(opts.State, log),
		gw:       opts.Gateway,
		resolver: resolve.New(opts.Gateway, log),
		decider:  decider,
		cfg:      cfg,
		log:      log,
		now:      now,
	}
	c.online.Store(opts.Online)
	return c
}

// Drafts exposes the draft store for read-side callers.
func (c *Controller) Drafts() *store.DraftStore { return c.drafts }

// Queue exposes the pending-mutation queue for read-side callers.
func (c *Controller) Queue() *store.Queue { return c.queue }

// Config returns the controller configuration.
func (c *Controller) Config() *config.Config { return c.cfg }

// Online reports the connectivity indicator.
func (c *Controller) Online() bool { return c.online.Load() }

// Start flushes pending mutations when the controller starts online.
func (c *Controller) Start(ctx context.Context) (*FlushReport, error) {
	if !c.Online() {
		return &FlushReport{Offline: true}, nil
	}
	return c.Flush(ctx)
}

// SetOnline updates connectivity. Going from offline to online triggers a
// flush; going offline only updates the indicator.
func (c *Controller) SetOnline(ctx context.Context, online bool) (*FlushReport, error) {
	was := c.online.Swap(online)
	if was == online {
		return nil, nil
	}
	c.log.Info("connectivity changed", "online", online)
	if !online {
		return nil, nil
	}
	return c.Flush(ctx)
}

// markOffline flips the indicator after a transport failure.
func (c *Controller) markOffline(cause error) {
	if c.online.Swap(false) {
		c.log.Warn("remote unreachable, switching to offline", "error", cause)
	}
}

// StatusOutput summarizes local sync state.
type StatusOutput struct {
	Online           bool   `json:"online"`
	QueueSize        int    `json:"queue_size"`
	Drafts           int    `json:"drafts"`
	DirtyDrafts      int    `json:"dirty_drafts"`
	CatalogFetchedAt string `json:"catalog_fetched_at,omitempty"`
	Unsynced         bool   `json:"unsynced"`
}

// Status reads a fresh snapshot of local state.
func (c *Controller) Status(ctx context.Context) (*StatusOutput, error) {
	size, err := c.queue.Size(ctx)
	if err != nil {
		return nil, err
	}
	drafts, err := c.drafts.ListIndexed(ctx)
	if err != nil {
		return nil, err
	}
	_, fetchedAt, err := c.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := &StatusOutput{
		Online:           c.Online(),
		QueueSize:        size,
		Drafts:           len(drafts),
		CatalogFetchedAt: fetchedAt,
	}
	for _, d := range drafts {
		if d.Dirty {
			out.DirtyDrafts++
		}
	}
	out.Unsynced = out.QueueSize > 0 || out.DirtyDrafts > 0
	return out, nil
}

// HasUnsyncedState reports whether discarding the process would lose work:
// the queue is non-empty or some indexed draft is dirty.
func (c *Controller) HasUnsyncedState(ctx context.Context) (bool, error) {
	size, err := c.queue.Size(ctx)
	if err != nil {
		return false, err
	}
	if size > 0 {
		return true, nil
	}
	drafts, err := c.drafts.ListIndexed(ctx)
	if err != nil {
		return false, err
	}
	for _, d := range drafts {
		if d.Dirty {
			return true, nil
		}
	}
	return false, nil
}
