package draftsync

import (
	"context"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/resolve"
)

// Submit states.
const (
	StateSaved      = "saved"
	StateQueued     = "queued"
	StateConflicted = "conflicted"
)

// SubmitOutput reports where a submitted draft ended up.
type SubmitOutput struct {
	State string `json:"state"`

	// Draft is the stored draft after the submit (migrated on first save)
	Draft *draft.Draft `json:"draft"`

	// PreviousIdentity is set when the save assigned a new identity
	PreviousIdentity string `json:"previous_identity,omitempty"`

	// Decision is the conflict decision taken, if a conflict occurred
	Decision string `json:"decision,omitempty"`

	// CurrentFingerprint is the remote fingerprint of an unresolved conflict
	CurrentFingerprint string `json:"current_fingerprint,omitempty"`
}

// Submit sends the draft for id to the remote.
// Offline, or when the remote is unreachable, the save is queued and the
// draft stays dirty. Validation failures and remote rejections are returned
// as errors and never queued. Conflicts are handed to the Decider.
func (c *Controller) Submit(ctx context.Context, id draft.Identity) (*SubmitOutput, error) {
	return c.SubmitWith(ctx, id, c.decider)
}

// SubmitWith is Submit with a per-call Decider. A nil decider abandons.
func (c *Controller) SubmitWith(ctx context.Context, id draft.Identity, decider resolve.Decider) (*SubmitOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok, err := c.drafts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewNotFound(id.String())
	}
	return c.submitLocked(ctx, d, decider)
}

// SubmitDraft stores d, then submits it. The store write and the payload
// snapshot happen under the same lock.
func (c *Controller) SubmitDraft(ctx context.Context, d *draft.Draft) (*SubmitOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.drafts.Put(ctx, d); err != nil {
		return nil, err
	}
	return c.submitLocked(ctx, d.Clone(), c.decider)
}

func (c *Controller) submitLocked(ctx context.Context, d *draft.Draft, decider resolve.Decider) (*SubmitOutput, error) {
	if decider == nil {
		decider = resolve.Fixed(resolve.Abandon)
	}
	payload := d.Payload()
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	if !c.Online() {
		return c.enqueueLocked(ctx, payload)
	}

	out := &SubmitOutput{}
	outcome := c.resolver.AttemptSave(ctx, payload)
	for {
		switch outcome.Kind {
		case resolve.Saved:
			saved, err := c.applySavedLocked(ctx, d, outcome, "", true)
			if err != nil {
				return nil, err
			}
			out.State = StateSaved
			out.Draft = saved
			if prev := d.Identity(); prev != saved.Identity() {
				out.PreviousIdentity = prev.String()
			}
			c.refreshCatalogLocked(ctx)
			return out, nil

		case resolve.Unreachable:
			c.markOffline(outcome.Err)
			return c.enqueueLocked(ctx, payload)

		case resolve.Rejected:
			return nil, outcome.Err

		case resolve.Conflict:
			decision, err := decider.Decide(ctx, payload, outcome)
			if err != nil {
				return nil, err
			}
			out.Decision = decision.String()
			c.log.Info("save conflict", "identity", d.Identity().String(), "decision", decision.String())
			if decision == resolve.Abandon {
				d.Dirty = true
				if err := c.drafts.Put(ctx, d); err != nil {
					return nil, err
				}
				out.State = StateConflicted
				out.Draft = d
				out.CurrentFingerprint = outcome.CurrentFingerprint
				return out, nil
			}
			outcome = c.resolver.Resolve(ctx, payload, outcome, decision)

		default:
			return nil, errors.NewInternal(nil)
		}
	}
}

func (c *Controller) enqueueLocked(ctx context.Context, payload draft.Payload) (*SubmitOutput, error) {
	if _, err := c.queue.Enqueue(ctx, payload); err != nil {
		return nil, err
	}
	d, _, err := c.drafts.Get(ctx, draft.ResolvePayloadIdentity(payload))
	if err != nil {
		return nil, err
	}
	c.log.Info("save queued", "identity", draft.ResolvePayloadIdentity(payload).String())
	return &SubmitOutput{State: StateQueued, Draft: d}, nil
}

// applySavedLocked records a successful save: the draft moves to its assigned
// route, loses its dirty flag (unless edited after basedOn), and any queued
// entry for the old or new identity is dropped when dropQueued is set.
func (c *Controller) applySavedLocked(ctx context.Context, d *draft.Draft, outcome resolve.Outcome, basedOn string, dropQueued bool) (*draft.Draft, error) {
	old := d.Identity()
	editedSince := basedOn != "" && d.Dirty && d.LocalUpdatedAt > basedOn

	saved := d.Clone()
	saved.MarkSaved(outcome.Result, c.now())
	if editedSince {
		saved.Dirty = true
		saved.LocalUpdatedAt = d.LocalUpdatedAt
	}
	if err := c.drafts.Migrate(ctx, old, saved); err != nil {
		return nil, err
	}
	if dropQueued {
		if err := c.queue.Remove(ctx, old, saved.Identity()); err != nil {
			return nil, err
		}
	}
	c.log.Info("draft saved", "identity", saved.Identity().String(), "previous", old.String())
	return saved, nil
}
