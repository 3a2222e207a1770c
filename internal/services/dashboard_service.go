package services

import (
	"context"
	"strconv"

	"moni/internal/cache"
	"moni/internal/core"
	"moni/internal/dashboard"
)

// Dashboard is the uncached aggregation layer.
type Dashboard interface {
	MonthlySummary(ctx context.Context, userID string, year, month int) (dashboard.MonthlySummary, error)
	History(ctx context.Context, userID string, months int) ([]dashboard.HistoryPoint, error)
	NetWorth(ctx context.Context, userID string) (dashboard.NetWorth, error)
	BudgetProgress(ctx context.Context, userID string, year, month int) ([]dashboard.BudgetStatus, error)
}

// DashboardService serves dashboard figures through the cache.
type DashboardService struct {
	dash  Dashboard
	cache *cache.Store
}

func NewDashboardService(dash Dashboard, c *cache.Store) *DashboardService {
	return &DashboardService{dash: dash, cache: c}
}

func (s *DashboardService) MonthlySummary(ctx context.Context, userID string, year, month int) (dashboard.MonthlySummary, error) {
	if err := core.RequireUserID(userID); err != nil {
		return dashboard.MonthlySummary{}, err
	}
	key := cache.Key{Kind: cache.KindSummary, UserID: userID, Period: core.Period{Year: year, Month: month}.String()}
	return cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) (dashboard.MonthlySummary, error) {
		return s.dash.MonthlySummary(ctx, userID, year, month)
	})
}

func (s *DashboardService) History(ctx context.Context, userID string, months int) ([]dashboard.HistoryPoint, error) {
	if err := core.RequireUserID(userID); err != nil {
		return nil, err
	}
	key := cache.Key{Kind: cache.KindHistory, UserID: userID, Period: strconv.Itoa(months) + "m"}
	return cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) ([]dashboard.HistoryPoint, error) {
		return s.dash.History(ctx, userID, months)
	})
}

func (s *DashboardService) NetWorth(ctx context.Context, userID string) (dashboard.NetWorth, error) {
	if err := core.RequireUserID(userID); err != nil {
		return dashboard.NetWorth{}, err
	}
	key := cache.Key{Kind: cache.KindNetWorth, UserID: userID}
	return cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) (dashboard.NetWorth, error) {
		return s.dash.NetWorth(ctx, userID)
	})
}

func (s *DashboardService) BudgetProgress(ctx context.Context, userID string, year, month int) ([]dashboard.BudgetStatus, error) {
	if err := core.RequireUserID(userID); err != nil {
		return nil, err
	}
	key := cache.Key{Kind: cache.KindBudgets, UserID: userID, Period: core.Period{Year: year, Month: month}.String()}
	return cache.GetOrLoad(ctx, s.cache, key, func(ctx context.Context) ([]dashboard.BudgetStatus, error) {
		return s.dash.BudgetProgress(ctx, userID, year, month)
	})
}
