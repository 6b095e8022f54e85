package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/pagerepo"
	"github.com/hpungsan/miniwriter/internal/preview"
)

// Handlers serves the read-only browsing routes.
type Handlers struct {
	repo *pagerepo.Repository
	log  *slog.Logger
}

// HandleIndex lists stored pages as JSON, newest first.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	pages, err := h.repo.List(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

// HandlePreview renders the page at the wildcard route as HTML.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	doc, err := h.repo.GetDocument(r.Context(), routeParam(r))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	html, err := preview.Page(doc.ToDraft())
	if err != nil {
		h.renderError(w, r, errors.NewInternal(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

// HandleRaw returns the stored front matter representation of a page.
func (h *Handlers) HandleRaw(w http.ResponseWriter, r *http.Request) {
	route := routeParam(r)
	data, ok := h.repo.Stored(route)
	if !ok {
		h.renderError(w, r, errors.NewNotFound(route))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func routeParam(r *http.Request) string {
	return "/" + strings.Trim(r.PathValue("route"), "/")
}

// renderError writes err as JSON when the client asks for it, plain text otherwise.
func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	mErr, ok := errors.As(err)
	if !ok {
		mErr = errors.NewInternal(err)
	}
	if mErr.Status >= 500 {
		h.log.Error("request failed", "path", r.URL.Path, "error", err)
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, mErr.Status, map[string]any{
			"error": map[string]any{
				"code":    string(mErr.Code),
				"message": mErr.Message,
				"status":  mErr.Status,
			},
		})
		return
	}
	http.Error(w, mErr.Message, mErr.Status)
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
