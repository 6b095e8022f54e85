package draftsync

import (
	"context"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/remote"
)

// NewDraft creates and stores an empty draft with a temporary identity.
func (c *Controller) NewDraft(ctx context.Context) (*draft.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, err := draft.New(c.cfg.DefaultParent, c.cfg.DefaultPublished, c.now())
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := c.drafts.Put(ctx, d); err != nil {
		return nil, err
	}
	c.log.Debug("created draft", "identity", d.Identity().String())
	return d, nil
}

// Open returns the local draft for id. A route with no local draft is fetched
// from the remote and stored as a clean overlay.
func (c *Controller) Open(ctx context.Context, id draft.Identity) (*draft.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openLocked(ctx, id)
}

func (c *Controller) openLocked(ctx context.Context, id draft.Identity) (*draft.Draft, error) {
	if id.IsZero() {
		return nil, errors.NewInvalidRequest("identity is required")
	}
	d, ok, err := c.drafts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		return d, nil
	}
	if !id.IsRoute() {
		return nil, errors.NewNotFound(id.String())
	}
	if !c.Online() {
		return nil, errors.NewUnreachable(nil)
	}

	doc, err := c.gw.GetDocument(ctx, id.Value())
	if err != nil {
		if errors.Is(err, errors.ErrUnreachable) {
			c.markOffline(err)
		}
		return nil, err
	}
	d = doc.ToDraft()
	if d.Template == "" {
		d.Template = draft.DefaultTemplate
	}
	if err := c.drafts.Put(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Changes lists the fields to modify in Edit. Nil fields are left untouched.
type Changes struct {
	Title       *string
	Date        *string
	Tags        *[]string
	Published   *bool
	Content     *string
	ParentRoute *string
}

// IsEmpty reports whether no field is set.
func (ch Changes) IsEmpty() bool {
	return ch.Title == nil && ch.Date == nil && ch.Tags == nil &&
		ch.Published == nil && ch.Content == nil && ch.ParentRoute == nil
}

// Apply writes the set fields onto d.
func (ch Changes) Apply(d *draft.Draft) {
	if ch.Title != nil {
		d.Title = *ch.Title
	}
	if ch.Date != nil {
		d.Date = *ch.Date
	}
	if ch.Tags != nil {
		d.Tags = append([]string{}, (*ch.Tags)...)
	}
	if ch.Published != nil {
		d.Published = *ch.Published
	}
	if ch.Content != nil {
		d.Content = *ch.Content
	}
	if ch.ParentRoute != nil {
		d.ParentRoute = *ch.ParentRoute
	}
}

// Edit applies changes to a local draft, marks it dirty and stores it.
// Local editing never touches the network.
func (c *Controller) Edit(ctx context.Context, id draft.Identity, changes Changes) (*draft.Draft, error) {
	if changes.IsEmpty() {
		return nil, errors.NewInvalidRequest("no changes given")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok, err := c.drafts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewNotFound(id.String())
	}
	changes.Apply(d)
	d.Touch(c.now())
	if err := c.drafts.Put(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Discard deletes the local draft for id and any queued mutation for it.
// The remote page, if any, is untouched.
func (c *Controller) Discard(ctx context.Context, id draft.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok, err := c.drafts.Get(ctx, id); err != nil {
		return err
	} else if !ok {
		return errors.NewNotFound(id.String())
	}
	if err := c.queue.Remove(ctx, id); err != nil {
		return err
	}
	return c.drafts.Delete(ctx, id)
}

// Duplicate asks the remote to copy the page at route and opens the copy.
func (c *Controller) Duplicate(ctx context.Context, route string) (*draft.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Online() {
		return nil, errors.NewUnreachable(nil)
	}
	reply, err := c.gw.Duplicate(ctx, route)
	if err != nil {
		if errors.Is(err, errors.ErrUnreachable) {
			c.markOffline(err)
		}
		return nil, err
	}
	if reply.Status != remote.StatusOK {
		return nil, errors.NewRejected(reply.Message)
	}
	c.refreshCatalogLocked(ctx)
	return c.openLocked(ctx, draft.Route(reply.Route))
}
