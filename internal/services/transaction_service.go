// Package services orchestrates the store, cache, messaging and renderers
// behind the HTTP handlers and the worker.
package services

import (
	"context"
	"fmt"

	"moni/internal/amqp"
	"moni/internal/cache"
	"moni/internal/core"
	"moni/internal/log"
	"moni/internal/storage"
)

// TransactionStore is the transaction side of the repository.
type TransactionStore interface {
	storage.PageLister
	CreateTransaction(ctx context.Context, t *core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// Publisher sends insights refresh requests to the worker.
type Publisher interface {
	PublishInsightsRefresh(ctx context.Context, msg *amqp.InsightsRefreshMessage) error
}

// TransactionService writes through the store, then invalidates the user's
// cached aggregates and asks the worker to refresh its pattern snapshot.
type TransactionService struct {
	store     TransactionStore
	cache     *cache.Store
	publisher Publisher
	logger    *log.Logger
}

// NewTransactionService accepts a nil cache and a nil publisher.
func NewTransactionService(store TransactionStore, c *cache.Store, publisher Publisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TransactionService{
		store:     store,
		cache:     c,
		publisher: publisher,
		logger:    logger,
	}
}

// Create validates and saves t, filling its ID.
func (s *TransactionService) Create(ctx context.Context, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldUserID, t.UserID,
		log.FieldTransactionID, t.ID,
		log.FieldType, string(t.Type))
	s.afterChange(ctx, t.UserID, amqp.ReasonTransactionCreated)
	return nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := core.RequireUserID(userID); err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldUserID, userID, log.FieldTransactionID, id)
	s.afterChange(ctx, userID, amqp.ReasonTransactionDeleted)
	return nil
}

// List returns every transaction matching f.
func (s *TransactionService) List(ctx context.Context, f storage.Filter) ([]core.Transaction, error) {
	txs, err := storage.FetchAll(ctx, s.store, f)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *TransactionService) afterChange(ctx context.Context, userID, reason string) {
	if n := s.cache.InvalidateUser(userID); n > 0 {
		s.logger.DebugContext(ctx, "Invalidated cached entries", log.FieldUserID, userID, log.FieldCount, n)
	}

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP not configured, skipping insights refresh", log.FieldUserID, userID)
		return
	}
	// publish failures never fail the write
	if err := s.publisher.PublishInsightsRefresh(ctx, amqp.NewInsightsRefreshMessage(userID, reason)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish insights refresh",
			log.FieldUserID, userID,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err.Error())
	}
}
