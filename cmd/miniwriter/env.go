package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hpungsan/miniwriter/internal/config"
	"github.com/hpungsan/miniwriter/internal/db"
	"github.com/hpungsan/miniwriter/internal/draftsync"
	"github.com/hpungsan/miniwriter/internal/logging"
	"github.com/hpungsan/miniwriter/internal/remote"
)

// probeTimeout bounds the startup connectivity probe.
const probeTimeout = 3 * time.Second

// env carries process-wide dependencies. The controller is built on first use
// so commands that never touch local state do not open it.
type env struct {
	baseDir string
	cfg     *config.Config
	log     *slog.Logger

	in  io.Reader
	out io.Writer

	// offline forces the offline state regardless of connectivity
	offline bool

	// gw overrides the HTTP gateway (tests)
	gw remote.Gateway

	state db.State
	ctrl  *draftsync.Controller
}

func (e *env) stdin() io.Reader {
	if e.in != nil {
		return e.in
	}
	return os.Stdin
}

func (e *env) stdout() io.Writer {
	if e.out != nil {
		return e.out
	}
	return os.Stdout
}

func (e *env) config() *config.Config {
	if e.cfg == nil {
		e.cfg = config.DefaultConfig()
	}
	return e.cfg
}

func (e *env) gateway() remote.Gateway {
	if e.gw == nil {
		e.gw = remote.NewHTTPClient(e.config().RemoteURL, remote.ClientOptions{
			Timeout: e.config().RequestTimeoutDuration(),
			Logger:  e.log,
		})
	}
	return e.gw
}

// pinger returns the gateway's connectivity probe, if it has one.
func (e *env) pinger() remote.Pinger {
	p, _ := e.gateway().(remote.Pinger)
	return p
}

// controller opens local state and builds the sync controller. Startup probes
// the remote once and flushes the queue when online.
func (e *env) controller(ctx context.Context) (*draftsync.Controller, error) {
	if e.ctrl != nil {
		return e.ctrl, nil
	}
	cfg := e.config()
	log := logging.OrDiscard(e.log)

	if e.state == nil {
		st, err := db.Open(e.baseDir, cfg)
		if err != nil {
			return nil, err
		}
		e.state = st
	}

	gw := e.gateway()
	online := !e.offline
	if online {
		if p := e.pinger(); p != nil {
			pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			if err := p.Ping(pingCtx); err != nil {
				log.Debug("remote probe failed, starting offline", "error", err)
				online = false
			}
			cancel()
		}
	}

	e.ctrl = draftsync.New(draftsync.Options{
		State:   e.state,
		Gateway: gw,
		Config:  cfg,
		Logger:  log,
		Online:  online,
	})

	report, err := e.ctrl.Start(ctx)
	if err != nil {
		log.Warn("startup flush failed", "error", err)
	} else if report != nil && report.Attempted > 0 {
		log.Info("startup flush", "saved", len(report.Saved), "remaining", report.Remaining)
	}
	return e.ctrl, nil
}

func (e *env) close() {
	if e.state != nil {
		e.state.Close()
		e.state = nil
	}
}
