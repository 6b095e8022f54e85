package draftsync

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/miniwriter/internal/config"
	"github.com/hpungsan/miniwriter/internal/db"
	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/pagerepo"
	"github.com/hpungsan/miniwriter/internal/remote"
	"github.com/hpungsan/miniwriter/internal/resolve"
)

// switchGateway wraps a reference repository with a connectivity switch and
// records the titles of attempted saves.
type switchGateway struct {
	repo *pagerepo.Repository

	mu    sync.Mutex
	down  bool
	saves []string
}

var errDown = stderrors.New("dial tcp: connection refused")

func (g *switchGateway) setDown(down bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.down = down
}

func (g *switchGateway) isDown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.down
}

func (g *switchGateway) savedTitles() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.saves...)
}

func (g *switchGateway) List(ctx context.Context) ([]remote.PageSummary, error) {
	if g.isDown() {
		return nil, errors.NewUnreachable(errDown)
	}
	return g.repo.List(ctx)
}

func (g *switchGateway) GetDocument(ctx context.Context, route string) (*remote.Document, error) {
	if g.isDown() {
		return nil, errors.NewUnreachable(errDown)
	}
	return g.repo.GetDocument(ctx, route)
}

func (g *switchGateway) Save(ctx context.Context, p draft.Payload) (remote.SaveReply, error) {
	if g.isDown() {
		return remote.SaveReply{}, errors.NewUnreachable(errDown)
	}
	g.mu.Lock()
	g.saves = append(g.saves, p.Title)
	g.mu.Unlock()
	return g.repo.Save(ctx, p)
}

func (g *switchGateway) Duplicate(ctx context.Context, route string) (remote.SaveReply, error) {
	if g.isDown() {
		return remote.SaveReply{}, errors.NewUnreachable(errDown)
	}
	return g.repo.Duplicate(ctx, route)
}

func (g *switchGateway) Ping(ctx context.Context) error {
	if g.isDown() {
		return errors.NewUnreachable(errDown)
	}
	return nil
}

// testClock advances one millisecond per call so timestamps stay ordered.
func testClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

type fixture struct {
	ctrl *Controller
	gw   *switchGateway
	repo *pagerepo.Repository
}

func setup(t *testing.T, online bool, decider resolve.Decider) *fixture {
	t.Helper()
	return setupWithState(t, online, decider, openState(t))
}

func openState(t *testing.T) db.State {
	t.Helper()
	st, err := db.Open(t.TempDir(), config.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func setupWithState(t *testing.T, online bool, decider resolve.Decider, st db.State) *fixture {
	t.Helper()
	repo := pagerepo.New(pagerepo.Options{Now: testClock()})
	gw := &switchGateway{repo: repo, down: !online}
	ctrl := New(Options{
		State:   st,
		Gateway: gw,
		Decider: decider,
		Config:  config.DefaultConfig(),
		Online:  online,
		Now:     testClock(),
	})
	return &fixture{ctrl: ctrl, gw: gw, repo: repo}
}

func strPtr(s string) *string { return &s }

// newEdited creates a draft with a title and content.
func (f *fixture) newEdited(t *testing.T, title, content string) *draft.Draft {
	t.Helper()
	ctx := context.Background()
	d, err := f.ctrl.NewDraft(ctx)
	require.NoError(t, err)
	d, err = f.ctrl.Edit(ctx, d.Identity(), Changes{Title: strPtr(title), Content: strPtr(content)})
	require.NoError(t, err)
	return d
}

// remotePage creates a page directly on the repository and opens it locally.
func (f *fixture) remotePage(t *testing.T, title, content string) *draft.Draft {
	t.Helper()
	ctx := context.Background()
	reply, err := f.repo.Save(ctx, draft.Payload{Title: title, Content: content})
	require.NoError(t, err)
	require.Equal(t, remote.StatusOK, reply.Status)
	d, err := f.ctrl.Open(ctx, draft.Route(reply.Route))
	require.NoError(t, err)
	return d
}

// editRemotely changes a page behind the client's back.
func (f *fixture) editRemotely(t *testing.T, route, content string) {
	t.Helper()
	ctx := context.Background()
	doc, err := f.repo.GetDocument(ctx, route)
	require.NoError(t, err)
	reply, err := f.repo.Save(ctx, draft.Payload{Route: route, Title: doc.Title, Content: content, Force: true})
	require.NoError(t, err)
	require.Equal(t, remote.StatusOK, reply.Status)
}

func (f *fixture) queued(t *testing.T) []string {
	t.Helper()
	entries, err := f.ctrl.Queue().Drain(context.Background())
	require.NoError(t, err)
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Payload.Title
	}
	return out
}
