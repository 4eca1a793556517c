// internal/app/system/workers/logincleanup.go
package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/libraryhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// LoginPruner is the part of the login store the cleanup worker needs.
type LoginPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LoginCleanup is a background worker that deletes login records older
// than the retention window.
type LoginCleanup struct {
	logins    LoginPruner
	log       *zap.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewLoginCleanup creates a new login cleanup worker.
//
// Parameters:
//   - logins: the login history store
//   - logger: zap logger for logging
//   - interval: how often to prune (e.g., 1 hour)
//   - retention: how long a login record is kept (e.g., 90 days)
func NewLoginCleanup(logins LoginPruner, logger *zap.Logger, interval, retention time.Duration) *LoginCleanup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginCleanup{
		logins:    logins,
		log:       logger,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start prunes once immediately, then on every tick.
func (w *LoginCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("login cleanup worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.retention))
}

// Stop signals the worker to stop and waits for it to finish.
// Safe to call more than once.
func (w *LoginCleanup) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("login cleanup worker stopped")
	})
}

func (w *LoginCleanup) run() {
	defer w.wg.Done()

	w.Prune()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Prune()
		}
	}
}

// Prune deletes records older than the retention window and returns how
// many were removed. Errors are logged, not returned.
func (w *LoginCleanup) Prune() int64 {
	ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Medium(), w.log, "login prune")
	defer cancel()

	count, err := w.PruneContext(ctx)
	if err != nil {
		w.log.Error("failed to prune login records", zap.Error(err))
		return 0
	}
	return count
}

// PruneContext is Prune for callers that must see the store error.
func (w *LoginCleanup) PruneContext(ctx context.Context) (int64, error) {
	cutoff := w.now().UTC().Add(-w.retention)
	count, err := w.logins.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune login records before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	if count > 0 {
		w.log.Info("pruned login records",
			zap.Int64("count", count),
			zap.Time("cutoff", cutoff))
	}
	return count, nil
}
