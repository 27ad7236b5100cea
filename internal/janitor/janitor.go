// Package janitor implements the State Janitor: a periodic sweep that
// expires alerts from the active set and reconciles the on-disk status
// files, shaped like internal/playlist.Scheduler's Start(ctx)/Running()/
// ForceCheck() ticking idiom but driven by robfig/cron instead of a bare
// time.Ticker, matching SPEC_FULL.md's ambient-stack choice to put every
// periodic task on one cron scheduler (see internal/cleanup).
package janitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wx-endec/eas-listener/internal/eas"
)

// AlertsNotifier receives the new active-set snapshot whenever the
// janitor removes at least one expired alert.
type AlertsNotifier interface {
	AlertsChanged(snapshot []eas.Alert)
}

// Janitor periodically expires alerts from an *eas.ActiveSet and
// reconciles status files when anything was removed.
type Janitor struct {
	activeSet *eas.ActiveSet
	stateDir  string
	notifier  AlertsNotifier

	mu      sync.RWMutex
	running bool
}

// New constructs a Janitor watching activeSet and writing status files
// under stateDir.
func New(activeSet *eas.ActiveSet, stateDir string, notifier AlertsNotifier) *Janitor {
	return &Janitor{activeSet: activeSet, stateDir: stateDir, notifier: notifier}
}

// Start registers the 60-second expiry tick on cronRunner and blocks
// until ctx is cancelled. Sharing one cron.Cron instance with
// internal/cleanup's daily sweep keeps a single background scheduler
// goroutine for both periodic tasks.
func (j *Janitor) Start(ctx context.Context, cronRunner *cron.Cron) error {
	if _, err := cronRunner.AddFunc("@every 1m", j.check); err != nil {
		return err
	}

	j.mu.Lock()
	j.running = true
	j.mu.Unlock()

	slog.Info("janitor: started", "interval", "1m")

	<-ctx.Done()
	slog.Info("janitor: stopping")

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
	return nil
}

// check performs a single expiry sweep: drops every alert whose
// expires_at <= now, and if anything was removed, reconciles status
// files and notifies.
func (j *Janitor) check() {
	snapshot, removed := j.activeSet.ExpireNow(time.Now())
	if removed == 0 {
		return
	}

	slog.Info("janitor: expired alerts", "count", removed, "remaining", len(snapshot))

	if err := eas.ReconcileStatusFiles(j.stateDir, snapshot); err != nil {
		slog.Error("janitor: reconciling status files", "error", err)
	}
	if j.notifier != nil {
		j.notifier.AlertsChanged(snapshot)
	}
}

// Running reports whether the janitor's tick loop is currently active.
func (j *Janitor) Running() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.running
}

// ForceCheck triggers an immediate expiry sweep outside the normal
// 60-second tick, useful for tests.
func (j *Janitor) ForceCheck() {
	j.check()
}
