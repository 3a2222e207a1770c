// Package worker recomputes pattern snapshots in response to refresh messages.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"moni/internal/amqp"
	"moni/internal/log"
	"moni/internal/storage"
)

// Refresher recomputes and stores one user's pattern snapshot.
type Refresher interface {
	RefreshSnapshot(ctx context.Context, userID string) (storage.PatternSnapshot, error)
}

// StaleLister finds users whose snapshot is behind their transactions.
type StaleLister interface {
	StaleSnapshotUsers(ctx context.Context, rulesVersion string, limit int) ([]string, error)
}

// InsightsWorker handles insights refresh messages and sweeps stale snapshots
// for messages that were lost while it was down.
type InsightsWorker struct {
	refresher    Refresher
	stale        StaleLister
	rulesVersion string
	batchSize    int
	logger       *log.Logger

	mu sync.Mutex
	// deferred holds users whose refresh failed in the previous sweep; they
	// sit out one sweep so they cannot fill every batch.
	deferred map[string]bool
}

func NewInsightsWorker(refresher Refresher, stale StaleLister, rulesVersion string, batchSize int, logger *log.Logger) *InsightsWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &InsightsWorker{
		refresher:    refresher,
		stale:        stale,
		rulesVersion: rulesVersion,
		batchSize:    batchSize,
		logger:       logger.WithComponent(log.ComponentWorker),
	}
}

// HandleRefresh is the amqp.Handler for refresh messages. Errors requeue the message.
func (w *InsightsWorker) HandleRefresh(ctx context.Context, msg *amqp.InsightsRefreshMessage) error {
	start := time.Now()
	snap, err := w.refresher.RefreshSnapshot(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("refresh snapshot for %s: %w", msg.UserID, err)
	}

	w.logger.InfoContext(ctx, "Pattern snapshot refreshed",
		log.FieldUserID, msg.UserID,
		"reason", msg.Reason,
		log.FieldRulesVersion, snap.RulesVersion,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// RefreshStale recomputes up to one batch of stale snapshots and returns how
// many succeeded. A failing user is logged, skipped, and left out of the
// next sweep.
func (w *InsightsWorker) RefreshStale(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	users, err := w.stale.StaleSnapshotUsers(ctx, w.rulesVersion, w.batchSize+len(w.deferred))
	if err != nil {
		return 0, fmt.Errorf("list stale snapshots: %w", err)
	}
	if len(users) == 0 {
		w.deferred = nil
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Refreshing stale pattern snapshots", log.FieldCount, len(users))
	failed := map[string]bool{}
	attempted, refreshed := 0, 0
	for _, userID := range users {
		if attempted == w.batchSize {
			break
		}
		if w.deferred[userID] {
			continue
		}
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		attempted++
		if _, err := w.refresher.RefreshSnapshot(ctx, userID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to refresh stale snapshot",
				log.FieldUserID, userID,
				log.FieldError, err.Error())
			failed[userID] = true
			continue
		}
		refreshed++
	}
	w.deferred = failed

	w.logger.InfoContext(ctx, "Stale snapshot sweep completed",
		"total", attempted,
		"refreshed", refreshed,
		"errors", len(failed))
	return refreshed, nil
}

// RunSweeps calls RefreshStale every interval until ctx is done.
func (w *InsightsWorker) RunSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RefreshStale(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic snapshot sweep failed", log.FieldError, err.Error())
			}
		}
	}
}
