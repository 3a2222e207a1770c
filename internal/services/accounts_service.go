package services

import (
	"context"
	"fmt"

	"moni/internal/cache"
	"moni/internal/core"
	"moni/internal/log"
)

// AccountsStore covers categories, assets, liabilities and budgets.
type AccountsStore interface {
	CreateCategory(ctx context.Context, c *core.Category) error
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	CreateAsset(ctx context.Context, a *core.Asset) error
	CreateLiability(ctx context.Context, l *core.Liability) error
	UpsertBudget(ctx context.Context, b *core.Budget) error
}

// AccountsService handles the user's reference data and drops the cached
// aggregates each write affects.
type AccountsService struct {
	store  AccountsStore
	cache  *cache.Store
	logger *log.Logger
}

func NewAccountsService(store AccountsStore, c *cache.Store, logger *log.Logger) *AccountsService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AccountsService{store: store, cache: c, logger: logger}
}

func (s *AccountsService) CreateCategory(ctx context.Context, c *core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	s.logger.InfoContext(ctx, "Category created", log.FieldUserID, c.UserID, "category", c.Name)
	return nil
}

func (s *AccountsService) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	if err := core.RequireUserID(userID); err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx, userID)
}

func (s *AccountsService) CreateAsset(ctx context.Context, a *core.Asset) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.store.CreateAsset(ctx, a); err != nil {
		return fmt.Errorf("save asset: %w", err)
	}
	s.cache.InvalidateKind(a.UserID, cache.KindNetWorth)
	return nil
}

func (s *AccountsService) CreateLiability(ctx context.Context, l *core.Liability) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if err := s.store.CreateLiability(ctx, l); err != nil {
		return fmt.Errorf("save liability: %w", err)
	}
	s.cache.InvalidateKind(l.UserID, cache.KindNetWorth)
	return nil
}

func (s *AccountsService) UpsertBudget(ctx context.Context, b *core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertBudget(ctx, b); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	s.cache.InvalidateKind(b.UserID, cache.KindBudgets)
	return nil
}
