package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/pagerepo"
	"github.com/hpungsan/miniwriter/internal/remote"
)

func setupTest(t *testing.T) (*pagerepo.Repository, http.Handler) {
	t.Helper()
	repo := pagerepo.New(pagerepo.Options{})
	return repo, NewHandler(repo, nil)
}

func seedPage(t *testing.T, repo *pagerepo.Repository, title, content string) string {
	t.Helper()
	reply, err := repo.Save(context.Background(), draft.Payload{Title: title, Content: content, Tags: []string{"seed"}})
	if err != nil {
		t.Fatalf("seed page %q: %v", title, err)
	}
	if reply.Status != remote.StatusOK {
		t.Fatalf("seed page %q: status %s (%s)", title, reply.Status, reply.Message)
	}
	return reply.Route
}

func TestSecurityHeaders(t *testing.T) {
	_, h := setupTest(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pages", nil))

	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestTaskEndpoint(t *testing.T) {
	repo, h := setupTest(t)
	seedPage(t, repo, "Hello", "body")

	body := strings.NewReader(`{"task":"miniwriter.list"}`)
	req := httptest.NewRequest(http.MethodPost, TaskPath, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Status string               `json:"status"`
		Pages  []remote.PageSummary `json:"pages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != remote.StatusOK || len(out.Pages) != 1 {
		t.Errorf("got status %q with %d pages", out.Status, len(out.Pages))
	}
}

func TestHandleIndex(t *testing.T) {
	repo, h := setupTest(t)
	seedPage(t, repo, "One", "1")
	seedPage(t, repo, "Two", "2")

	for _, path := range []string{"/", "/pages"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"/two"`) {
			t.Errorf("GET %s body missing /two: %s", path, w.Body.String())
		}
	}
}

func TestHandlePreview_Found(t *testing.T) {
	repo, h := setupTest(t)
	route := seedPage(t, repo, "Preview Me", "# Heading\n\n*em*")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/preview"+route, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	html := w.Body.String()
	if !strings.Contains(html, "<h1>Heading</h1>") || !strings.Contains(html, "<em>em</em>") {
		t.Errorf("preview body = %s", html)
	}
}

func TestHandlePreview_NotFound(t *testing.T) {
	_, h := setupTest(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/preview/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandlePreview_NotFound_JSON(t *testing.T) {
	_, h := setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/preview/missing", nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var out struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error.Code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", out.Error.Code)
	}
}

func TestHandleRaw(t *testing.T) {
	repo, h := setupTest(t)
	route := seedPage(t, repo, "Raw", "text")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/raw"+route, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	stored, _ := repo.Stored(route)
	if w.Body.String() != string(stored) {
		t.Errorf("raw body = %q, want stored %q", w.Body.String(), stored)
	}
	if !strings.HasPrefix(w.Body.String(), "---\n") {
		t.Errorf("raw body should start with front matter: %q", w.Body.String())
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	repo := pagerepo.New(pagerepo.Options{})
	srv := NewServer(repo, nil, "127.0.0.1", 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
