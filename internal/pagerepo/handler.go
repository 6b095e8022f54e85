package pagerepo

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/logging"
	"github.com/hpungsan/miniwriter/internal/remote"
)

// maxBodyBytes bounds a task request body.
const maxBodyBytes = 4 << 20

// Handler serves the task protocol for repo: a JSON body (or ?task= query
// parameter) names the task; replies carry "status": ok, conflict or error.
func Handler(repo *Repository, logger *slog.Logger) http.Handler {
	log := logging.OrDiscard(logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, errorReply("Method not allowed"))
			return
		}

		var input struct {
			Task string `json:"task"`
			draft.Payload
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorReply("Unreadable body"))
			return
		}
		if len(body) > 0 {
			// Malformed JSON reads as an empty request, like a missing body.
			_ = json.Unmarshal(body, &input)
		}
		if input.Task == "" {
			input.Task = r.URL.Query().Get("task")
		}
		if input.Route == "" {
			input.Route = r.URL.Query().Get("route")
		}

		ctx := r.Context()
		switch input.Task {
		case remote.TaskList:
			pages, err := repo.List(ctx)
			if err != nil {
				writeError(w, log, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": remote.StatusOK, "pages": pages})
		case remote.TaskPage:
			doc, err := repo.GetDocument(ctx, input.Route)
			if err != nil {
				if errors.Is(err, errors.ErrNotFound) {
					writeJSON(w, http.StatusOK, errorReply(remote.MessagePageNotFound))
					return
				}
				writeError(w, log, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": remote.StatusOK, "page": doc})
		case remote.TaskSave:
			reply, err := repo.Save(ctx, input.Payload)
			if err != nil {
				writeError(w, log, err)
				return
			}
			writeJSON(w, http.StatusOK, reply)
		case remote.TaskDuplicate:
			reply, err := repo.Duplicate(ctx, input.Route)
			if err != nil {
				writeError(w, log, err)
				return
			}
			writeJSON(w, http.StatusOK, reply)
		case "":
			writeJSON(w, http.StatusBadRequest, errorReply("Missing task"))
		default:
			writeJSON(w, http.StatusBadRequest, errorReply("Unknown task"))
		}
	})
}

func errorReply(msg string) map[string]any {
	return map[string]any{"status": remote.StatusError, "message": msg}
}

// writeError maps MiniwriterError application errors to replies and
// everything else to a 500.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	if mErr, ok := errors.As(err); ok && mErr.Status < 500 {
		writeJSON(w, http.StatusOK, errorReply(mErr.Message))
		return
	}
	log.Error("task failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorReply("Internal error"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
