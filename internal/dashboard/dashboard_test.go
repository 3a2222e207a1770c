package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moni/internal/core"
	"moni/internal/storage"
)

type fakeStore struct {
	txs         []core.Transaction
	assets      []core.Asset
	liabilities []core.Liability
	budgets     []core.Budget

	txErr, assetErr, liabilityErr error
	pages                         atomic.Int32
}

func (s *fakeStore) ListTransactionsPage(_ context.Context, f storage.Filter, offset, limit int) ([]core.Transaction, error) {
	s.pages.Add(1)
	if s.txErr != nil {
		return nil, s.txErr
	}
	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.UserID != f.UserID || (f.Type != "" && tx.Type != f.Type) {
			continue
		}
		if (!f.From.IsZero() && tx.Date.Before(f.From)) || (!f.To.IsZero() && !tx.Date.Before(f.To)) {
			continue
		}
		out = append(out, tx)
	}
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (s *fakeStore) ListAssets(context.Context, string) ([]core.Asset, error) {
	return s.assets, s.assetErr
}

func (s *fakeStore) ListLiabilities(context.Context, string) ([]core.Liability, error) {
	return s.liabilities, s.liabilityErr
}

func (s *fakeStore) ListBudgets(context.Context, string) ([]core.Budget, error) {
	return s.budgets, nil
}

func mk(typ core.TransactionType, amount string, y, m, d int, category, categoryID string) core.Transaction {
	return core.Transaction{
		ID:           category + amount,
		UserID:       "u1",
		Description:  "mov",
		Amount:       decimal.RequireFromString(amount),
		Date:         core.NewDate(y, m, d),
		Type:         typ,
		CategoryID:   categoryID,
		CategoryName: category,
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMonthlySummary(t *testing.T) {
	store := &fakeStore{txs: []core.Transaction{
		mk(core.Income, "20000", 2024, 3, 1, "Salario", "c0"),
		mk(core.Expense, "8000", 2024, 3, 2, "Renta", "c1"),
		mk(core.Expense, "2000", 2024, 3, 10, "Comida", "c2"),
		mk(core.Expense, "8000", 2024, 2, 2, "Renta", "c1"),
		mk(core.Income, "99999", 2024, 2, 1, "Salario", "c0"),
	}}
	svc := NewService(store, nil)

	s, err := svc.MonthlySummary(context.Background(), "u1", 2024, 3)
	require.NoError(t, err)

	assert.Equal(t, "2024-03", s.Period)
	assert.True(t, d("20000").Equal(s.Income))
	assert.True(t, d("10000").Equal(s.Expense))
	assert.True(t, d("10000").Equal(s.Balance))
	assert.Equal(t, 50.0, s.SavingsRate)
	assert.True(t, d("8000").Equal(s.PreviousExpense), "previous income is ignored")
	assert.Equal(t, 25.0, s.ExpenseGrowth)
	assert.Equal(t, 3, s.TransactionCount)
	require.Len(t, s.Categories, 2)
	assert.Equal(t, "Renta", s.Categories[0].Category)
	assert.Equal(t, 80.0, s.Categories[0].Percentage)
}

func TestSummarizeZeroDenominators(t *testing.T) {
	s := Summarize(core.Period{Year: 2024, Month: 1}, []core.Transaction{
		mk(core.Expense, "150", 2024, 1, 3, "", ""),
	}, nil)
	assert.Equal(t, 0.0, s.SavingsRate, "no income")
	assert.Equal(t, 0.0, s.ExpenseGrowth, "no previous month")
	assert.Equal(t, "Sin categoría", s.Categories[0].Category)

	empty := Summarize(core.Period{Year: 2024, Month: 1}, nil, nil)
	assert.NotNil(t, empty.Categories)
	assert.Zero(t, empty.SavingsRate)
}

func TestMonthlySummaryErrors(t *testing.T) {
	store := &fakeStore{txErr: errors.New("disk full")}
	svc := NewService(store, nil)

	_, err := svc.MonthlySummary(context.Background(), "", 2024, 3)
	assert.ErrorIs(t, err, core.ErrMissingUserID)
	_, err = svc.MonthlySummary(context.Background(), "u1", 2024, 13)
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
	assert.Zero(t, store.pages.Load(), "validation happens before any fetch")

	_, err = svc.MonthlySummary(context.Background(), "u1", 2024, 3)
	assert.ErrorContains(t, err, "disk full")
}

func TestGenerateHistoricalChartData(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		mk(core.Income, "25000", 2024, 3, 1, "", ""),
		mk(core.Expense, "1234.56", 2024, 3, 5, "", ""),
		mk(core.Expense, "300.10", 2024, 3, 6, "", ""),
		mk(core.Expense, "999", 2024, 1, 31, "", ""),
		mk(core.Income, "18000.40", 2023, 11, 30, "", ""),
		mk(core.Expense, "5000", 2023, 9, 1, "", ""), // outside the window
	}

	points := GenerateHistoricalChartData(txs, now, 6)
	require.Len(t, points, 6)
	assert.Equal(t, "2023-10", points[0].Period)
	assert.Equal(t, "oct", points[0].Month)
	assert.Equal(t, "2024-03", points[5].Period)
	assert.Equal(t, "mar", points[5].Month)

	assert.Equal(t, 25.0, points[5].Inc)
	assert.Equal(t, 1.53, points[5].Exp)
	assert.Equal(t, 1.0, points[3].Exp)
	assert.Equal(t, 18.0, points[1].Inc)
	assert.Zero(t, points[0].Inc+points[0].Exp)

	// thousands round trip within rounding
	var incSum, expSum float64
	for _, p := range points {
		incSum += p.Inc * 1000
		expSum += p.Exp * 1000
	}
	assert.InDelta(t, 25000+18000.40, incSum, 5*2)
	assert.InDelta(t, 1234.56+300.10+999, expSum, 5*2)

	assert.Empty(t, GenerateHistoricalChartData(txs, now, 0))
}

func TestHistoryWindowAndClamp(t *testing.T) {
	store := &fakeStore{txs: []core.Transaction{mk(core.Expense, "2000", 2024, 2, 1, "", "")}}
	svc := NewService(store, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }

	points, err := svc.History(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, points, DefaultHistoryMonths)
	assert.Equal(t, 2.0, points[4].Exp)

	points, err = svc.History(context.Background(), "u1", 100)
	require.NoError(t, err)
	assert.Len(t, points, MaxHistoryMonths)

	_, err = svc.History(context.Background(), " ", 3)
	assert.ErrorIs(t, err, core.ErrMissingUserID)
}

func TestNetWorth(t *testing.T) {
	store := &fakeStore{
		assets: []core.Asset{
			{ID: "a1", Name: "Casa", Category: "inmueble", Value: d("1500000"), Cost: d("1000000")},
			{ID: "a2", Name: "Efectivo", Category: "liquidez", Value: d("20000")},
		},
		liabilities: []core.Liability{
			{ID: "l1", Name: "Hipoteca", Category: "credito", Balance: d("600000")},
		},
	}
	nw, err := NewService(store, nil).NetWorth(context.Background(), "u1")
	require.NoError(t, err)

	assert.True(t, d("1520000").Equal(nw.TotalAssets))
	assert.True(t, d("600000").Equal(nw.TotalLiabilities))
	assert.True(t, d("920000").Equal(nw.NetWorth))
	require.Len(t, nw.Assets, 2)
	assert.Equal(t, 50.0, nw.Assets[0].ROI)
	assert.Equal(t, 0.0, nw.Assets[1].ROI, "zero cost gives zero ROI")
}

func TestNetWorthEmptyAndErrors(t *testing.T) {
	nw := CombineNetWorth(nil, nil)
	assert.True(t, nw.NetWorth.IsZero())
	assert.NotNil(t, nw.Assets)
	assert.NotNil(t, nw.Liabilities)

	boom := errors.New("liabilities unavailable")
	_, err := NewService(&fakeStore{liabilityErr: boom}, nil).NetWorth(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)

	_, err = NewService(&fakeStore{}, nil).NetWorth(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrMissingUserID)
}

func TestBudgetProgress(t *testing.T) {
	store := &fakeStore{
		txs: []core.Transaction{
			mk(core.Expense, "2500", 2024, 3, 3, "Comida", "food"),
			mk(core.Expense, "1000", 2024, 3, 20, "Comida", "food"),
			mk(core.Expense, "300", 2024, 3, 4, "Ocio", "fun"),
			mk(core.Expense, "9000", 2024, 2, 4, "Comida", "food"),
			mk(core.Income, "9000", 2024, 3, 4, "Comida", "food"),
		},
		budgets: []core.Budget{
			{ID: "b1", CategoryID: "food", CategoryName: "Comida", MonthlyLimit: d("3000")},
			{ID: "b2", CategoryID: "fun", CategoryName: "Ocio", MonthlyLimit: d("1200")},
			{ID: "b3", CategoryID: "travel", CategoryName: "Viajes", MonthlyLimit: d("5000")},
		},
	}

	got, err := NewService(store, nil).BudgetProgress(context.Background(), "u1", 2024, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, d("3500").Equal(got[0].Spent))
	assert.True(t, d("-500").Equal(got[0].Remaining))
	assert.Equal(t, 116.67, got[0].PercentUsed)
	assert.True(t, got[0].OverLimit)

	assert.Equal(t, 25.0, got[1].PercentUsed)
	assert.False(t, got[1].OverLimit)

	assert.True(t, got[2].Spent.IsZero())
	assert.Zero(t, got[2].PercentUsed)

	_, err = NewService(store, nil).BudgetProgress(context.Background(), "u1", 2024, 0)
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
}
