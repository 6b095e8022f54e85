package draftsync

import (
	"context"
	"log/slog"
	"time"

	"github.com/hpungsan/miniwriter/internal/logging"
	"github.com/hpungsan/miniwriter/internal/remote"
)

// Monitor probes the remote on an interval and drives Controller.SetOnline.
type Monitor struct {
	ctrl     *Controller
	pinger   remote.Pinger
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
}

// NewMonitor creates a Monitor. interval <= 0 uses the controller's online
// check interval.
func NewMonitor(ctrl *Controller, pinger remote.Pinger, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = ctrl.cfg.OnlineCheckDuration()
	}
	return &Monitor{
		ctrl:     ctrl,
		pinger:   pinger,
		interval: interval,
		timeout:  3 * time.Second,
		log:      logging.OrDiscard(logger),
	}
}

// Check probes once and updates connectivity. A transition to online flushes
// the queue before Check returns.
func (m *Monitor) Check(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(pingCtx)
	cancel()

	online := err == nil
	if err != nil {
		m.log.Debug("remote probe failed", "error", err)
	}
	report, ferr := m.ctrl.SetOnline(ctx, online)
	if ferr != nil {
		m.log.Warn("flush after reconnect failed", "error", ferr)
	} else if report != nil {
		m.log.Info("flushed after reconnect", "saved", len(report.Saved), "remaining", report.Remaining)
	}
	return online
}

// Run checks connectivity every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
