// Package sheets defines the spreadsheet export port used for generated reports.
package sheets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ReportRow is one category line of an exported report.
type ReportRow struct {
	GeneratedAt time.Time
	UserID      string
	Year        int
	Period      string
	Type        string
	Category    string
	Amount      decimal.Decimal
	Percentage  float64
}

// Values returns the row cells in column order A..G.
func (r ReportRow) Values() []any {
	amount, _ := r.Amount.Round(2).Float64()
	return []any{
		r.GeneratedAt.Format("2006-01-02 15:04"),
		r.UserID,
		r.Period,
		r.Type,
		r.Category,
		amount,
		r.Percentage,
	}
}

// ReportExporter appends report rows to an external spreadsheet and returns a
// reference to the written range.
type ReportExporter interface {
	AppendReportRows(ctx context.Context, rows []ReportRow) (ref string, err error)
}
