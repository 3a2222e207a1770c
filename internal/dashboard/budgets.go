package dashboard

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"moni/internal/core"
	"moni/internal/storage"
)

type BudgetStatus struct {
	BudgetID     string          `json:"budgetId"`
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Limit        decimal.Decimal `json:"limit"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	PercentUsed  float64         `json:"percentUsed"`
	OverLimit    bool            `json:"overLimit"`
}

// BudgetProgress reports spending against every budget of the user for one month.
func (s *Service) BudgetProgress(ctx context.Context, userID string, year, month int) ([]BudgetStatus, error) {
	if err := core.RequireUserID(userID); err != nil {
		return nil, err
	}
	p := core.Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.IsYear() {
		return nil, fmt.Errorf("%w: budgets are monthly", core.ErrInvalidPeriod)
	}

	var (
		budgets  []core.Budget
		expenses []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if budgets, err = s.store.ListBudgets(gctx, userID); err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if expenses, err = storage.FetchAll(gctx, s.store, storage.PeriodFilter(userID, p, core.Expense)); err != nil {
			return fmt.Errorf("fetch %s expenses: %w", p, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Progress(budgets, expenses), nil
}

// Progress matches expenses to budgets by category id.
func Progress(budgets []core.Budget, expenses []core.Transaction) []BudgetStatus {
	spent := map[string]decimal.Decimal{}
	for _, tx := range expenses {
		if tx.Type != core.Expense || tx.CategoryID == "" {
			continue
		}
		spent[tx.CategoryID] = spent[tx.CategoryID].Add(tx.Amount)
	}

	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		used := spent[b.CategoryID]
		out = append(out, BudgetStatus{
			BudgetID:     b.ID,
			CategoryID:   b.CategoryID,
			CategoryName: b.CategoryName,
			Limit:        b.MonthlyLimit,
			Spent:        used,
			Remaining:    b.MonthlyLimit.Sub(used),
			PercentUsed:  core.Percent(core.Float(used), core.Float(b.MonthlyLimit)),
			OverLimit:    used.GreaterThan(b.MonthlyLimit),
		})
	}
	return out
}
