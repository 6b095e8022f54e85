package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/miniwriter/internal/devserver"
	"github.com/hpungsan/miniwriter/internal/draft"
	"github.com/hpungsan/miniwriter/internal/draftsync"
	"github.com/hpungsan/miniwriter/internal/errors"
	"github.com/hpungsan/miniwriter/internal/pagerepo"
	"github.com/hpungsan/miniwriter/internal/preview"
	"github.com/hpungsan/miniwriter/internal/resolve"
	"github.com/hpungsan/miniwriter/internal/workfile"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "miniwriter",
		Usage:   "Offline-first page drafts with queued sync",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "remote", Aliases: []string{"r"}, Usage: "Remote task endpoint (overrides remote_url)"},
			&cli.BoolFlag{Name: "offline", Usage: "Work offline: never contact the remote"},
		},
		Before: func(c *cli.Context) error {
			if remoteURL := c.String("remote"); remoteURL != "" {
				e.config().RemoteURL = remoteURL
			}
			if c.Bool("offline") {
				e.offline = true
			}
			return nil
		},
		Commands: []*cli.Command{
			newCmd(e),
			openCmd(e),
			editCmd(e),
			submitCmd(e),
			syncCmd(e),
			listCmd(e),
			queueCmd(e),
			statusCmd(e),
			discardCmd(e),
			previewCmd(e),
			devserverCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// draftFlags are the editable fields shared by new and edit.
func draftFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Page title"},
		&cli.StringFlag{Name: "date", Usage: "Page date"},
		&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Markdown body; - reads stdin"},
		&cli.StringFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Parent route"},
		&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
		&cli.BoolFlag{Name: "published", Usage: "Published flag"},
	}
}

// changesFromFlags collects the flags that were set into Changes.
func changesFromFlags(c *cli.Context, e *env) (draftsync.Changes, error) {
	var ch draftsync.Changes
	if c.IsSet("title") {
		v := c.String("title")
		ch.Title = &v
	}
	if c.IsSet("date") {
		v := c.String("date")
		ch.Date = &v
	}
	if c.IsSet("content") {
		v := c.String("content")
		if v == "-" {
			data, err := io.ReadAll(e.stdin())
			if err != nil {
				return ch, errors.NewInternal(err)
			}
			v = strings.TrimRight(string(data), "\n")
		}
		ch.Content = &v
	}
	if c.IsSet("parent") {
		v := c.String("parent")
		ch.ParentRoute = &v
	}
	if c.IsSet("tags") {
		v := draft.ParseTags(c.String("tags"))
		ch.Tags = &v
	}
	if c.IsSet("published") {
		v := c.Bool("published")
		ch.Published = &v
	}
	return ch, nil
}

// identityArg parses the single positional argument as a draft identity.
// Flag parsing stops at the first positional argument, so anything after it
// is refused rather than silently ignored.
func identityArg(c *cli.Context) (draft.Identity, error) {
	if c.Args().Len() > 1 {
		extra := c.Args().Slice()[1:]
		if strings.HasPrefix(extra[0], "-") {
			return draft.Identity{}, errors.NewInvalidRequest(fmt.Sprintf("flag %s must come before the route or id", extra[0]))
		}
		return draft.Identity{}, errors.NewInvalidRequest(fmt.Sprintf("unexpected arguments: %s", strings.Join(extra, " ")))
	}
	id := draft.ParseIdentity(strings.TrimSpace(c.Args().First()))
	if id.IsZero() {
		return id, errors.NewInvalidRequest("a route or temporary id is required")
	}
	return id, nil
}

// newCmd creates the new command.
func newCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create a local draft",
		Flags: draftFlags(),
		Action: func(c *cli.Context) error {
			ctrl, err := e.controller(c.Context)
			if err != nil {
				return outputError(err)
			}
			changes, err := changesFromFlags(c, e)
			if err != nil {
				return outputError(err)
			}

			d, err := ctrl.NewDraft(c.Context)
			if err != nil {
				return outputError(err)
			}
			if !changes.IsEmpty() {
				if d, err = ctrl.Edit(c.Context, d.Identity(), changes); err != nil {
					return outputError(err)
				}
			}
			return e.outputJSON(d)
		},
	}
}

// openCmd creates the open command.
func openCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Show a draft, fetching the remote page if there is no local draft",
		ArgsUsage: "<route|id>",
		Action: func(c *cli.Context) error {
			id, err := identityArg(c)
			if err != nil {
				return outputError(err)
			}
			ctrl, err := e.controller(c.Context)
			if err != nil {
				return outputError(err)
			}
			d, err := ctrl.Open(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(d)
		},
	}
}

// editCmd creates the edit command.
func editCmd(e *env) *cli.Command {
	flags := append(draftFlags(),
		&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Edit through a work file until interrupted"},
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Work file path (with --watch)"},
	)
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit a local draft",
		ArgsUsage: "<route|id>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			id, err := identityArg(c)
			if err != nil {
				return outputError(err)
			}
			ctrl, err := e.controller(c.Context)
			if err != nil {
				return outputError(err)
			}

			if c.Bool("watch") {
				return watchEdit(c, e, ctrl, id)
			}

			changes, err := changesFromFlags(c, e)
			if err != nil {
				return outputError(err)
			}
			d, err := ctrl.Edit(c.Context, id, changes)
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(d)
		},
	}
}

// watchEdit mirrors the draft into a work file and feeds file saves into an
// autosaving session until SIGINT/SIGTERM.
func watchEdit(c *cli.Context, e *env, ctrl *draftsync.Controller, id draft.Identity) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := ctrl.OpenSession(ctx, id)
	if err != nil {
		return outputError(err)
	}

	path := c.String("file")
	if path == "" {
		path = filepath.Join(e.baseDir, "work", workfile.FileName(session.Snapshot()))
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if err := workfile.Write(path, session.Snapshot()); err != nil {
		_ = session.Close(context.Background())
		return outputError(err)
	}
	fmt.Fprintf(os.Stderr, "editing %s (autosave every %s, Ctrl-C to stop)\n", path, session.Interval())

	werr := workfile.Watch(ctx, path, session, e.log)
	if err := session.Close(context.Background()); err != nil {
		return outputError(err)
	}
	if werr != nil {
		return outputError(werr)
	}
	return e.outputJSON(session.Snapshot())
}

// submitCmd creates the submit command.
func submitCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "Save a draft to the remote, or queue it when offline",
		ArgsUsage: "<route|id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "on-conflict", Value: "prompt", Usage: "Conflict decision: prompt|overwrite|duplicate|abandon"},
		},
		Action: func(c *cli.Context) error {
			id, err := identityArg(c)
			if err != nil {
				return outputError(err)
			}

			var decider resolve.Decider
			switch choice := c.String("on-conflict"); choice {
			case "prompt":
				decider = promptDecider(e.stdin(), os.Stderr)
			default:
				decision, err := resolve.ParseDecision(choice)
				if err != nil {
					return outputError(err)
				}
				decider = resolve.Fixed(decision)
			}

			ctrl, err := e.controller(c.Context)
			if err != nil {
				return outputError(err)
			}
			out, err := ctrl.SubmitWith(c.Context, id, decider)
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(out)
		},
	}
}

// syncCmd creates the sync command.
func syncCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Replay queued saves in order",
		Action: func(c *cli.Context) error {
			ctrl, err := e.controller(c.Context)
			if err != nil {
				return outputError(err)
			}
			report, err := ctrl.Flush(c.Context)
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(report)
		},
	}
}

// listCmd creates the list command.
func listCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List remote pages merged with local drafts",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "refresh", Usage: "Refetch the remote catalog first"},
		},
		Action: func(c *cli.Context) error {
			ctrl, err := e.controller(c.Context)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("refresh") {
				if _, err := ctrl.RefreshCatalog(c.Context); err != nil {
					return outputError(err)
				}
			}
			items, err := ctrl.List(c.Context)
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(map[string]any{"items": items, "count": len(items)})
		},
	}
}

// queueCmd creates the queue command.
func queueCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Show pending saves",
		Action: func(c *cli.Context) error {
			ctrl, err := e.controller(c.Context)
			if err != nil {
				return outputError(err)
			}
			entries, err := ctrl.Queue().Drain(c.Context)
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(map[string]any{"entries": entries, "count": len(entries)})
		},
	}
}

// statusCmd creates the status command.
func statusCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show connectivity and unsynced local state",
		Action: func(c *cli.Context) error {
			ctrl, err := e.controller(c.Context)
			if err != nil {
				return outputError(err)
			}
			status, err := ctrl.Status(c.Context)
			if err != nil {
				return outputError(err)
			}
			return e.outputJSON(status)
		},
	}
}

// discardCmd creates the discard command.
func discardCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "discard",
		Usage:     "Delete a local draft and its queued save",
		ArgsUsage: "<route|id>",
		Action: func(c *cli.Context) error {
			id, err := identityArg(c)
			if err != nil {
				return outputError(err)
			}
			ctrl, err := e.controller(c.Context)
			if err != nil {
				return outputError(err)
			}
			if err := ctrl.Discard(c.Context, id); err != nil {
				return outputError(err)
			}
			return e.outputJSON(map[string]any{"id": id.String(), "discarded": true})
		},
	}
}

// previewCmd creates the preview command.
func previewCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Render a draft as an HTML page",
		ArgsUsage: "<route|id>",
		Action: func(c *cli.Context) error {
			id, err := identityArg(c)
			if err != nil {
				return outputError(err)
			}
			ctrl, err := e.controller(c.Context)
			if err != nil {
				return outputError(err)
			}
			d, err := ctrl.Open(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			html, err := preview.Page(d)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			_, err = e.stdout().Write(html)
			return err
		},
	}
}

// devserverCmd creates the devserver command.
func devserverCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "devserver",
		Usage: "Serve an in-memory page repository for local development",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8765, Usage: "Port"},
		},
		Action: func(c *cli.Context) error {
			repo := pagerepo.New(pagerepo.Options{
				ConflictPrefix: e.config().ConflictPrefix,
				Logger:         e.log,
			})
			srv := devserver.NewServer(repo, e.log, c.String("bind"), c.Int("port"))
			return devserver.Run(c.Context, srv, e.log)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func (e *env) outputJSON(v any) error {
	enc := json.NewEncoder(e.stdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if mErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", mErr.Code, mErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
