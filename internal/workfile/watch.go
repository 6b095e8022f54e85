package workfile

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/hpungsan/miniwriter/internal/draftsync"
	"github.com/hpungsan/miniwriter/internal/logging"
)

// Updater receives edits read from the work file. *draftsync.Session
// satisfies it.
type Updater interface {
	Update(changes draftsync.Changes)
}

var _ Updater = (*draftsync.Session)(nil)

// Watch feeds every saved change of the file at path into u until ctx is done.
// The parent directory is watched so editors that replace the file on save
// are followed. Unparseable intermediate states are logged and skipped.
func Watch(ctx context.Context, path string, u Updater, logger *slog.Logger) error {
	log := logging.OrDiscard(logger)
	if err := validatePath(path); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	last, _ := readNoFollow(abs)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			data, err := readNoFollow(abs)
			if err != nil {
				log.Debug("work file not readable", "path", abs, "error", err)
				continue
			}
			if len(data) == 0 || bytes.Equal(data, last) {
				continue
			}
			changes, err := Parse(data)
			if err != nil {
				log.Warn("skipping unparseable work file", "path", abs, "error", err)
				continue
			}
			last = data
			u.Update(changes)
			log.Debug("work file change applied", "path", abs)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		}
	}
}
