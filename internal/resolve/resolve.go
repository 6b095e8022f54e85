// Package resolve performs single save attempts against the remote and
// carries out explicit conflict decisions.
package resolve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/logging"
	"github.com/hpungsan/miniwriter/internal/remote"
)

// Kind classifies the outcome of a save attempt.
type Kind int

const (
	Saved Kind = iota + 1
	Conflict
	Rejected
	Unreachable
)

func (k Kind) String() string {
	switch k {
	case Saved:
		return "saved"
	case Conflict:
		return "conflict"
	case Rejected:
		return "rejected"
	case Unreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Outcome is the result of one save attempt.
type Outcome struct {
	Kind Kind

	// Result is set for Saved: assigned route and new fingerprint
	Result draft.SaveResult

	// CurrentFingerprint is set for Conflict
	CurrentFingerprint string

	// Reason is set for Rejected
	Reason string

	// Err describes Rejected and Unreachable outcomes as a MiniwriterError
	Err error
}

// Identity returns the assigned identity of a Saved outcome.
func (o Outcome) Identity() draft.Identity {
	if o.Kind != Saved {
		return draft.Identity{}
	}
	return draft.Route(o.Result.Route)
}

// Decision is the caller's answer to a conflict.
type Decision int

const (
	// Abandon leaves the draft dirty and unsynced.
	Abandon Decision = iota
	// Overwrite resubmits with force against the fresh fingerprint (last writer wins).
	Overwrite
	// Duplicate copies the remote version to a new route and saves the local edit there.
	Duplicate
)

func (d Decision) String() string {
	switch d {
	case Abandon:
		return "abandon"
	case Overwrite:
		return "overwrite"
	case Duplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// ParseDecision maps a user-facing name to a Decision.
func ParseDecision(s string) (Decision, error) {
	switch s {
	case "abandon", "cancel", "3":
		return Abandon, nil
	case "overwrite", "force", "1":
		return Overwrite, nil
	case "duplicate", "2":
		return Duplicate, nil
	default:
		return Abandon, errors.NewInvalidRequest(fmt.Sprintf("unknown conflict decision %q", s))
	}
}

// Decider supplies conflict decisions, typically by asking the user.
type Decider interface {
	Decide(ctx context.Context, payload draft.Payload, conflict Outcome) (Decision, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, payload draft.Payload, conflict Outcome) (Decision, error)

// Decide calls f.
func (f DeciderFunc) Decide(ctx context.Context, payload draft.Payload, conflict Outcome) (Decision, error) {
	return f(ctx, payload, conflict)
}

// Fixed returns a Decider that always answers d.
func Fixed(d Decision) Decider {
	return DeciderFunc(func(context.Context, draft.Payload, Outcome) (Decision, error) {
		return d, nil
	})
}

// Resolver runs save attempts through a Gateway.
type Resolver struct {
	gw  remote.Gateway
	log *slog.Logger
}

// New creates a Resolver.
func New(gw remote.Gateway, logger *slog.Logger) *Resolver {
	return &Resolver{gw: gw, log: logging.OrDiscard(logger)}
}

// AttemptSave validates payload locally and, if valid, submits it once.
func (r *Resolver) AttemptSave(ctx context.Context, payload draft.Payload) Outcome {
	if err := payload.Validate(); err != nil {
		mErr, _ := errors.As(err)
		return Outcome{Kind: Rejected, Reason: mErr.Message, Err: err}
	}

	reply, err := r.gw.Save(ctx, payload)
	if err != nil {
		return unreachable(err)
	}
	return r.fromReply(payload, reply)
}

// Resolve applies decision to a Conflict outcome for payload.
func (r *Resolver) Resolve(ctx context.Context, payload draft.Payload, conflict Outcome, decision Decision) Outcome {
	if conflict.Kind != Conflict {
		return conflict
	}

	switch decision {
	case Overwrite:
		payload.Force = true
		payload.ExpectedFingerprint = conflict.CurrentFingerprint
		r.log.Info("overwriting remote version", "route", payload.Route)
		return r.AttemptSave(ctx, payload)
	case Duplicate:
		return r.duplicate(ctx, payload)
	default:
		return conflict
	}
}

// duplicate branches the remote version to a new route, then saves the local
// edit over that copy.
func (r *Resolver) duplicate(ctx context.Context, payload draft.Payload) Outcome {
	if payload.Route == "" {
		err := errors.NewRejected("cannot duplicate a page that has no route")
		return Outcome{Kind: Rejected, Reason: err.Message, Err: err}
	}

	reply, err := r.gw.Duplicate(ctx, payload.Route)
	if err != nil {
		return unreachable(err)
	}
	if reply.Status != remote.StatusOK {
		return rejected(reply.Message)
	}

	fingerprint := reply.Fingerprint
	if fingerprint == "" {
		doc, err := r.gw.GetDocument(ctx, reply.Route)
		if err != nil {
			if errors.Is(err, errors.ErrUnreachable) {
				return unreachable(err)
			}
			return rejected(err.Error())
		}
		fingerprint = doc.Fingerprint
	}
	r.log.Info("duplicated remote version", "from", payload.Route, "to", reply.Route)

	branch := payload
	branch.Route = reply.Route
	branch.Slug = reply.Slug
	if reply.ParentRoute != "" {
		branch.ParentRoute = reply.ParentRoute
	}
	branch.ExpectedFingerprint = fingerprint
	branch.Force = false
	return r.AttemptSave(ctx, branch)
}

func (r *Resolver) fromReply(payload draft.Payload, reply remote.SaveReply) Outcome {
	switch reply.Status {
	case remote.StatusOK:
		return Outcome{Kind: Saved, Result: reply.Result()}
	case remote.StatusConflict:
		id := draft.ResolvePayloadIdentity(payload).String()
		return Outcome{
			Kind:               Conflict,
			CurrentFingerprint: reply.Fingerprint,
			Err:                errors.NewConflict(id, reply.Fingerprint),
		}
	case remote.StatusError:
		return rejected(reply.Message)
	default:
		r.log.Warn("unexpected save status", "status", reply.Status)
		return unreachable(fmt.Errorf("unexpected reply status %q", reply.Status))
	}
}

func rejected(msg string) Outcome {
	err := errors.NewRejected(msg)
	return Outcome{Kind: Rejected, Reason: err.Message, Err: err}
}

func unreachable(err error) Outcome {
	if !errors.Is(err, errors.ErrUnreachable) {
		err = errors.NewUnreachable(err)
	}
	return Outcome{Kind: Unreachable, Err: err}
}
