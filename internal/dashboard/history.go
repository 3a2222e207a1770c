package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"moni/internal/core"
	"moni/internal/log"
	"moni/internal/storage"
)

var shortMonths = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}

// HistoryPoint is one month of the history chart. Inc and Exp are in thousands.
type HistoryPoint struct {
	Period string  `json:"period"`
	Month  string  `json:"month"`
	Inc    float64 `json:"inc"`
	Exp    float64 `json:"exp"`
}

// GenerateHistoricalChartData returns the last months calendar months ending
// with the month of now, oldest first. Months without transactions are zero.
func GenerateHistoricalChartData(txs []core.Transaction, now time.Time, months int) []HistoryPoint {
	if months < 1 {
		return []HistoryPoint{}
	}
	first := core.MonthOf(now).Start().AddDate(0, -(months - 1), 0)

	income := make([]decimal.Decimal, months)
	expense := make([]decimal.Decimal, months)
	for _, tx := range txs {
		d := tx.Date.UTC()
		i := (d.Year()-first.Year())*12 + int(d.Month()) - int(first.Month())
		if i < 0 || i >= months {
			continue
		}
		if tx.Type == core.Income {
			income[i] = income[i].Add(tx.Amount)
		} else {
			expense[i] = expense[i].Add(tx.Amount)
		}
	}

	out := make([]HistoryPoint, months)
	for i := range out {
		m := first.AddDate(0, i, 0)
		out[i] = HistoryPoint{
			Period: core.MonthOf(m).String(),
			Month:  shortMonths[m.Month()-1],
			Inc:    thousands(income[i]),
			Exp:    thousands(expense[i]),
		}
	}
	return out
}

func thousands(d decimal.Decimal) float64 {
	return core.Round2(core.Float(d) / 1000)
}

// History fetches the window covered by the chart and builds it.
func (s *Service) History(ctx context.Context, userID string, months int) ([]HistoryPoint, error) {
	if err := core.RequireUserID(userID); err != nil {
		return nil, err
	}
	if months <= 0 {
		months = DefaultHistoryMonths
	}
	if months > MaxHistoryMonths {
		months = MaxHistoryMonths
	}

	now := s.now()
	current := core.MonthOf(now)
	f := storage.Filter{
		UserID: userID,
		From:   current.Start().AddDate(0, -(months - 1), 0),
		To:     current.End(),
	}
	txs, err := storage.FetchAll(ctx, s.store, f)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	points := GenerateHistoricalChartData(txs, now, months)
	s.logger.DebugContext(ctx, "History computed", log.FieldUserID, userID, log.FieldCount, len(txs))
	return points, nil
}
