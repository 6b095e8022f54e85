// Package devserver hosts the reference page repository over HTTP for local
// development: the task endpoint plus an HTML preview of stored pages.
package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/miniwriter/internal/logging"
	"github.com/hpungsan/miniwriter/internal/pagerepo"
)

// TaskPath is where the task protocol is served.
const TaskPath = "/task"

// NewServer creates the HTTP server for repo.
func NewServer(repo *pagerepo.Repository, logger *slog.Logger, bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           NewHandler(repo, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed handler, wrapped with security headers.
func NewHandler(repo *pagerepo.Repository, logger *slog.Logger) http.Handler {
	log := logging.OrDiscard(logger)
	h := &Handlers{repo: repo, log: log}

	mux := http.NewServeMux()
	mux.Handle(TaskPath, pagerepo.Handler(repo, log))
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /pages", h.HandleIndex)
	mux.HandleFunc("GET /preview/{route...}", h.HandlePreview)
	mux.HandleFunc("GET /raw/{route...}", h.HandleRaw)

	return securityHeaders(mux)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM
// or when ctx is done.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	log := logging.OrDiscard(logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("page repository running", "url", "http://"+srv.Addr+TaskPath)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
