package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"moni/internal/cache"
	"moni/internal/core"
	"moni/internal/log"
	"moni/internal/patterns"
	"moni/internal/storage"
)

// SnapshotStore persists the worker's last classification per user.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s storage.PatternSnapshot) error
	GetSnapshot(ctx context.Context, userID string) (storage.PatternSnapshot, error)
}

// InsightsService classifies a user's recent expenses.
type InsightsService struct {
	txs       storage.PageLister
	snapshots SnapshotStore
	cache     *cache.Store
	rules     patterns.Rules
	logger    *log.Logger
	now       func() time.Time
}

func NewInsightsService(txs storage.PageLister, snapshots SnapshotStore, c *cache.Store, rules patterns.Rules, logger *log.Logger) *InsightsService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &InsightsService{
		txs:       txs,
		snapshots: snapshots,
		cache:     c,
		rules:     rules,
		logger:    logger.WithComponent(log.ComponentPatterns),
		now:       time.Now,
	}
}

// Patterns returns the cached classification or computes it.
func (s *InsightsService) Patterns(ctx context.Context, userID string) (patterns.Result, error) {
	if err := core.RequireUserID(userID); err != nil {
		return patterns.Result{}, err
	}
	key := cache.Key{Kind: cache.KindPatterns, UserID: userID}
	return cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) (patterns.Result, error) {
		return s.Classify(ctx, userID)
	})
}

// Classify fetches the lookback window and runs the classifier. It either
// sees every transaction of the window or fails.
func (s *InsightsService) Classify(ctx context.Context, userID string) (patterns.Result, error) {
	if err := core.RequireUserID(userID); err != nil {
		return patterns.Result{}, err
	}
	now := s.now().UTC()
	f := storage.Filter{
		UserID: userID,
		From:   patterns.WindowStart(now, s.rules.LookbackMonths),
		To:     time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC),
		Type:   core.Expense,
	}
	txs, err := storage.FetchAll(ctx, s.txs, f)
	if err != nil {
		return patterns.Result{}, fmt.Errorf("fetch pattern window: %w", err)
	}

	result := patterns.Classify(txs, now, s.rules)
	s.logger.InfoContext(ctx, "Expense patterns classified",
		log.FieldUserID, userID,
		log.FieldOperation, log.OpClassify,
		log.FieldCount, len(txs),
		log.FieldRulesVersion, result.RulesVersion,
		"fixed", result.Fixed.Count,
		"variable", result.Variable.Count,
		"ant", result.Ant.Count,
		"impulsive", result.Impulsive.Count)
	return result, nil
}

// RefreshSnapshot recomputes the classification, persists it and primes the cache.
func (s *InsightsService) RefreshSnapshot(ctx context.Context, userID string) (storage.PatternSnapshot, error) {
	result, err := s.Classify(ctx, userID)
	if err != nil {
		return storage.PatternSnapshot{}, err
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return storage.PatternSnapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}

	snap := storage.PatternSnapshot{
		UserID:       userID,
		ComputedAt:   s.now().UTC(),
		RulesVersion: result.RulesVersion,
		Payload:      payload,
	}
	if s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
			return storage.PatternSnapshot{}, fmt.Errorf("save snapshot: %w", err)
		}
	}
	s.cache.Set(cache.Key{Kind: cache.KindPatterns, UserID: userID}, result)
	return snap, nil
}

// Snapshot returns the last snapshot stored by the worker.
func (s *InsightsService) Snapshot(ctx context.Context, userID string) (storage.PatternSnapshot, error) {
	if err := core.RequireUserID(userID); err != nil {
		return storage.PatternSnapshot{}, err
	}
	if s.snapshots == nil {
		return storage.PatternSnapshot{}, core.ErrNotFound
	}
	return s.snapshots.GetSnapshot(ctx, userID)
}
