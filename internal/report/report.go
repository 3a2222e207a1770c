// Package report renders printable income/expense statements: totals, a
// per-category breakdown with an inline SVG pie chart, the transaction table
// and a short AI-written commentary.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"moni/internal/core"
)

// Type selects which transactions a report covers.
type Type string

const (
	TypeIncome  Type = "ingreso"
	TypeExpense Type = "gasto"
	TypeBoth    Type = "ambos"
)

// ParseType accepts the wire values; empty means both.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeIncome:
		return TypeIncome, nil
	case TypeExpense:
		return TypeExpense, nil
	case TypeBoth, "":
		return TypeBoth, nil
	default:
		return "", fmt.Errorf("%w: report type %q", core.ErrInvalidType, s)
	}
}

// TransactionType is the store filter for t; empty for both.
func (t Type) TransactionType() core.TransactionType {
	switch t {
	case TypeIncome:
		return core.Income
	case TypeExpense:
		return core.Expense
	default:
		return ""
	}
}

func (t Type) includes(tt core.TransactionType) bool {
	want := t.TransactionType()
	return want == "" || want == tt
}

// Request identifies one report. Month 0 asks for the full year.
type Request struct {
	UserID string `json:"user_id"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Type   Type   `json:"type"`
}

func (r Request) Period() core.Period {
	return core.Period{Year: r.Year, Month: r.Month}
}

// Validate checks the request before any I/O.
func (r Request) Validate() error {
	_, err := r.Normalize()
	return err
}

// Normalize validates r and returns it with Type in its canonical form.
func (r Request) Normalize() (Request, error) {
	if err := core.RequireUserID(r.UserID); err != nil {
		return r, err
	}
	if err := r.Period().Validate(); err != nil {
		return r, err
	}
	t, err := ParseType(string(r.Type))
	if err != nil {
		return r, err
	}
	r.Type = t
	return r, nil
}

// Filename is reporte_<ingresos|gastos|movimientos>_<YYYY-MM|YYYY>.pdf.
func Filename(r Request) string {
	kind := "movimientos"
	switch r.Type {
	case TypeIncome:
		kind = "ingresos"
	case TypeExpense:
		kind = "gastos"
	}
	return fmt.Sprintf("reporte_%s_%s.pdf", kind, r.Period())
}

// Category is one row of the breakdown.
type Category struct {
	Name       string          `json:"name"`
	Total      decimal.Decimal `json:"total"`
	Percentage float64         `json:"percentage"`
	Color      string          `json:"color"`
}

// Summary holds the aggregates of a report window.
type Summary struct {
	IncomeTotal  decimal.Decimal
	ExpenseTotal decimal.Decimal
	Balance      decimal.Decimal
	// Total is the sum of the transactions the report covers.
	Total      decimal.Decimal
	Categories []Category
	Rows       []core.Transaction
}

const uncategorized = "Sin categoría"

// Summarize computes totals and the category breakdown of the transactions
// matching t. Categories get palette colors in order of first appearance and
// are returned largest first.
func Summarize(txs []core.Transaction, t Type) Summary {
	_, palette := Palette(t)
	s := Summary{
		IncomeTotal:  decimal.Zero,
		ExpenseTotal: decimal.Zero,
		Total:        decimal.Zero,
		Categories:   []Category{},
		Rows:         []core.Transaction{},
	}

	index := map[string]int{}
	for _, tx := range txs {
		if !t.includes(tx.Type) {
			continue
		}
		s.Rows = append(s.Rows, tx)
		if tx.Type == core.Income {
			s.IncomeTotal = s.IncomeTotal.Add(tx.Amount)
		} else {
			s.ExpenseTotal = s.ExpenseTotal.Add(tx.Amount)
		}
		s.Total = s.Total.Add(tx.Amount)

		name := strings.TrimSpace(tx.CategoryName)
		if name == "" {
			name = uncategorized
		}
		i, ok := index[name]
		if !ok {
			i = len(s.Categories)
			index[name] = i
			s.Categories = append(s.Categories, Category{Name: name, Total: decimal.Zero, Color: colorAt(palette, i)})
		}
		s.Categories[i].Total = s.Categories[i].Total.Add(tx.Amount)
	}
	s.Balance = s.IncomeTotal.Sub(s.ExpenseTotal)

	total := core.Float(s.Total)
	for i := range s.Categories {
		s.Categories[i].Percentage = core.Percent(core.Float(s.Categories[i].Total), total)
	}
	sort.SliceStable(s.Categories, func(i, j int) bool {
		return s.Categories[i].Total.GreaterThan(s.Categories[j].Total)
	})
	return s
}
