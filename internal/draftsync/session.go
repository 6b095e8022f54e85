package draftsync

import (
	"context"
	"sync"
	"time"

	"github.com/hpungsan/miniwriter/internal/draft"
)

// Session holds one in-progress edit and autosaves it to the draft store.
// Autosave never touches the network.
type Session struct {
	ctrl *Controller

	mu      sync.Mutex
	current *draft.Draft
	pending bool

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// OpenSession opens the draft for id and starts its autosave timer.
func (c *Controller) OpenSession(ctx context.Context, id draft.Identity) (*Session, error) {
	d, err := c.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ctrl:     c,
		current:  d,
		interval: c.cfg.AutosaveDuration(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.autosaveLoop()
	return s, nil
}

// Interval returns the autosave period.
func (s *Session) Interval() time.Duration { return s.interval }

// Snapshot returns a copy of the in-progress draft.
func (s *Session) Snapshot() *draft.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Update applies changes to the in-progress draft and marks it dirty.
// The change reaches the store on the next autosave, Save, Submit or Close.
func (s *Session) Update(changes Changes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changes.Apply(s.current)
	s.current.Touch(s.ctrl.now())
	s.pending = true
}

// Save writes pending changes to the draft store.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Session) saveLocked(ctx context.Context) error {
	if !s.pending {
		return nil
	}
	if err := s.ctrl.drafts.Put(ctx, s.current.Clone()); err != nil {
		return err
	}
	s.pending = false
	return nil
}

// Submit persists the current edit and submits it. The session lock is held
// throughout, so an autosave tick cannot write between the snapshot and the
// store write, nor resurrect the pre-migration identity afterwards.
func (s *Session) Submit(ctx context.Context) (*SubmitOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.ctrl.SubmitDraft(ctx, s.current.Clone())
	if err != nil {
		return nil, err
	}
	s.pending = false
	if out.Draft != nil {
		s.current = out.Draft.Clone()
	}
	return out, nil
}

// Close stops the autosave timer and stores pending changes. Outstanding
// network calls are not cancelled.
func (s *Session) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Session) autosaveLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Save(context.Background()); err != nil {
				s.ctrl.log.Warn("autosave failed", "identity", s.Snapshot().Identity().String(), "error", err)
			}
		case <-s.stop:
			return
		}
	}
}
