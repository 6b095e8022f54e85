package draftsync

import (
	"context"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/resolve"
	"github.com/hpungsan/miniwriter/internal/store"
)

// RejectedEntry is a queued save the remote refused during a flush.
type RejectedEntry struct {
	Identity string `json:"identity"`
	Reason   string `json:"reason"`
}

// FlushReport summarizes one flush pass.
type FlushReport struct {
	// Offline is set when no pass was attempted
	Offline bool `json:"offline,omitempty"`

	Attempted int             `json:"attempted"`
	Saved     []string        `json:"saved"`
	Rejected  []RejectedEntry `json:"rejected,omitempty"`

	// StoppedAt is the identity of the entry that halted the pass, if any
	StoppedAt  string `json:"stopped_at,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`

	Remaining int `json:"remaining"`
}

// Flush replays queued saves strictly in order, one at a time. The pass stops
// at the first conflict or transport failure; that entry and all later ones
// stay queued. Saved entries are removed and their drafts migrated; rejected
// entries are dropped and their drafts stay dirty. The catalog is refetched
// after every pass.
func (c *Controller) Flush(ctx context.Context) (*FlushReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked(ctx)
}

func (c *Controller) flushLocked(ctx context.Context) (*FlushReport, error) {
	report := &FlushReport{Saved: []string{}}
	if !c.Online() {
		report.Offline = true
		report.Remaining, _ = c.queue.Size(ctx)
		return report, nil
	}

	entries, err := c.queue.Drain(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		c.refreshCatalogLocked(ctx)
		return report, nil
	}
	c.log.Info("flushing queue", "entries", len(entries))

	retained := []store.Entry{}
	for i, entry := range entries {
		// Load before sending so a local failure never follows a remote write.
		d, err := c.draftFor(ctx, entry)
		if err != nil {
			return nil, c.abortFlush(ctx, entries[i:], err)
		}

		report.Attempted++
		outcome := c.resolver.AttemptSave(ctx, entry.Payload)

		switch outcome.Kind {
		case resolve.Saved:
			saved, err := c.applySavedLocked(ctx, d, outcome, entry.EnqueuedAt, false)
			if err != nil {
				// The remote already holds this entry; replaying it would duplicate the write.
				return nil, c.abortFlush(ctx, entries[i+1:], err)
			}
			report.Saved = append(report.Saved, saved.Identity().String())
			continue

		case resolve.Rejected:
			c.log.Warn("queued save rejected", "identity", entry.DraftIdentity, "reason", outcome.Reason)
			report.Rejected = append(report.Rejected, RejectedEntry{Identity: entry.DraftIdentity, Reason: outcome.Reason})
			continue

		case resolve.Unreachable:
			c.markOffline(outcome.Err)
		}

		report.StoppedAt = entry.DraftIdentity
		report.StopReason = outcome.Kind.String()
		retained = entries[i:]
		break
	}

	if err := c.queue.ReplaceAll(ctx, retained); err != nil {
		return nil, err
	}
	report.Remaining = len(retained)
	c.refreshCatalogLocked(ctx)

	c.log.Info("flush finished", "saved", len(report.Saved), "rejected", len(report.Rejected), "remaining", report.Remaining)
	return report, nil
}

// abortFlush persists the entries still owed to the remote before returning
// cause, so a failed pass never replays entries it already delivered.
func (c *Controller) abortFlush(ctx context.Context, rest []store.Entry, cause error) error {
	if err := c.queue.ReplaceAll(ctx, rest); err != nil {
		c.log.Error("failed to persist queue after flush error", "error", err, "cause", cause)
	}
	c.log.Warn("flush aborted", "remaining", len(rest), "error", cause)
	return cause
}

// draftFor loads the draft behind a queue entry, rebuilding it from the
// payload if the local record is gone.
func (c *Controller) draftFor(ctx context.Context, entry store.Entry) (*draft.Draft, error) {
	d, ok, err := c.drafts.Get(ctx, entry.Identity())
	if err != nil {
		return nil, err
	}
	if !ok {
		return draft.FromPayload(entry.Payload), nil
	}
	return d, nil
}
