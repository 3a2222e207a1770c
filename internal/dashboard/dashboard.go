// Package dashboard aggregates a user's transactions, assets, liabilities and
// budgets into the figures shown on the home screen.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"moni/internal/core"
	"moni/internal/log"
	"moni/internal/storage"
)

// Store is the read side needed by the dashboard.
type Store interface {
	storage.PageLister
	ListAssets(ctx context.Context, userID string) ([]core.Asset, error)
	ListLiabilities(ctx context.Context, userID string) ([]core.Liability, error)
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
}

const (
	DefaultHistoryMonths = 6
	MaxHistoryMonths     = 24
)

type Service struct {
	store  Store
	logger *log.Logger
	now    func() time.Time
}

func NewService(store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		store:  store,
		logger: logger.WithComponent(log.ComponentDashboard),
		now:    time.Now,
	}
}

// CategoryTotal is the expense total of one category within a period.
type CategoryTotal struct {
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Percentage float64         `json:"percentage"`
}

type MonthlySummary struct {
	Period          string          `json:"period"`
	Income          decimal.Decimal `json:"income"`
	Expense         decimal.Decimal `json:"expense"`
	Balance         decimal.Decimal `json:"balance"`
	SavingsRate     float64         `json:"savingsRate"`
	PreviousExpense decimal.Decimal `json:"previousExpense"`
	// ExpenseGrowth is the month-over-month change in expenses, in percent.
	ExpenseGrowth    float64         `json:"expenseGrowth"`
	TransactionCount int             `json:"transactionCount"`
	Categories       []CategoryTotal `json:"categories"`
}

// MonthlySummary loads the requested period and the one before it in parallel.
func (s *Service) MonthlySummary(ctx context.Context, userID string, year, month int) (MonthlySummary, error) {
	if err := core.RequireUserID(userID); err != nil {
		return MonthlySummary{}, err
	}
	p := core.Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return MonthlySummary{}, err
	}

	var current, previous []core.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := storage.FetchAll(gctx, s.store, storage.PeriodFilter(userID, p, ""))
		if err != nil {
			return fmt.Errorf("fetch %s: %w", p, err)
		}
		current = txs
		return nil
	})
	g.Go(func() error {
		prev := p.Previous()
		txs, err := storage.FetchAll(gctx, s.store, storage.PeriodFilter(userID, prev, core.Expense))
		if err != nil {
			return fmt.Errorf("fetch %s: %w", prev, err)
		}
		previous = txs
		return nil
	})
	if err := g.Wait(); err != nil {
		return MonthlySummary{}, err
	}

	summary := Summarize(p, current, previous)
	s.logger.DebugContext(ctx, "Monthly summary computed",
		log.FieldUserID, userID,
		log.FieldPeriod, p.String(),
		log.FieldCount, summary.TransactionCount)
	return summary, nil
}

// Summarize computes the monthly summary of current against the expenses of previous.
func Summarize(p core.Period, current, previous []core.Transaction) MonthlySummary {
	out := MonthlySummary{
		Period:          p.String(),
		Income:          decimal.Zero,
		Expense:         decimal.Zero,
		PreviousExpense: decimal.Zero,
		Categories:      []CategoryTotal{},
	}

	byCategory := map[string]decimal.Decimal{}
	var order []string
	for _, tx := range current {
		out.TransactionCount++
		if tx.Type == core.Income {
			out.Income = out.Income.Add(tx.Amount)
			continue
		}
		out.Expense = out.Expense.Add(tx.Amount)
		name := categoryName(tx)
		if _, ok := byCategory[name]; !ok {
			order = append(order, name)
		}
		byCategory[name] = byCategory[name].Add(tx.Amount)
	}
	for _, tx := range previous {
		if tx.Type == core.Expense {
			out.PreviousExpense = out.PreviousExpense.Add(tx.Amount)
		}
	}

	out.Balance = out.Income.Sub(out.Expense)
	out.SavingsRate = core.Percent(core.Float(out.Balance), core.Float(out.Income))
	out.ExpenseGrowth = core.Percent(core.Float(out.Expense.Sub(out.PreviousExpense)), core.Float(out.PreviousExpense))

	expense := core.Float(out.Expense)
	for _, name := range order {
		total := byCategory[name]
		out.Categories = append(out.Categories, CategoryTotal{
			Category:   name,
			Total:      total,
			Percentage: core.Percent(core.Float(total), expense),
		})
	}
	sort.SliceStable(out.Categories, func(i, j int) bool {
		return out.Categories[i].Total.GreaterThan(out.Categories[j].Total)
	})
	return out
}

func categoryName(tx core.Transaction) string {
	if name := strings.TrimSpace(tx.CategoryName); name != "" {
		return name
	}
	return "Sin categoría"
}
