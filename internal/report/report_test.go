package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moni/internal/core"
)

func tx(id string, typ core.TransactionType, amount string, category string) core.Transaction {
	return core.Transaction{
		ID:           id,
		UserID:       "u1",
		Description:  "Movimiento " + id,
		Amount:       decimal.RequireFromString(amount),
		Date:         core.NewDate(2024, 3, 10),
		Type:         typ,
		CategoryName: category,
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		req  Request
		want string
	}{
		{Request{UserID: "u", Year: 2024, Month: 3, Type: TypeIncome}, "reporte_ingresos_2024-03.pdf"},
		{Request{UserID: "u", Year: 2024, Month: 11, Type: TypeExpense}, "reporte_gastos_2024-11.pdf"},
		{Request{UserID: "u", Year: 2023, Type: TypeBoth}, "reporte_movimientos_2023.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.req))
			assert.Equal(t, tt.want, Filename(tt.req), "deterministic")
		})
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"ingreso": TypeIncome, "GASTO": TypeExpense, "ambos": TypeBoth, "": TypeBoth} {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseType("todo")
	assert.ErrorIs(t, err, core.ErrInvalidType)
}

func TestRequestValidate(t *testing.T) {
	assert.ErrorIs(t, Request{Year: 2024, Month: 1, Type: TypeBoth}.Validate(), core.ErrMissingUserID)
	assert.ErrorIs(t, Request{UserID: "u", Year: 2024, Month: 13, Type: TypeBoth}.Validate(), core.ErrInvalidPeriod)
	assert.ErrorIs(t, Request{UserID: "u", Year: 2024, Type: "x"}.Validate(), core.ErrInvalidType)
	assert.NoError(t, Request{UserID: "u", Year: 2024, Type: TypeIncome}.Validate())
}

func TestRequestNormalize(t *testing.T) {
	tests := []struct {
		in   Type
		want Type
	}{
		{"INGRESO", TypeIncome},
		{" Gasto ", TypeExpense},
		{"", TypeBoth},
		{"Ambos", TypeBoth},
	}
	for _, tt := range tests {
		got, err := Request{UserID: "u", Year: 2024, Month: 3, Type: tt.in}.Normalize()
		require.NoError(t, err, string(tt.in))
		assert.Equal(t, tt.want, got.Type, string(tt.in))
		assert.Equal(t, "u", got.UserID)
	}

	_, err := Request{UserID: "u", Year: 2024, Type: "todo"}.Normalize()
	assert.ErrorIs(t, err, core.ErrInvalidType)
}

func TestSummarize(t *testing.T) {
	txs := []core.Transaction{
		tx("1", core.Expense, "100", "Comida"),
		tx("2", core.Income, "5000", "Salario"),
		tx("3", core.Expense, "300", "Renta"),
		tx("4", core.Expense, "100", "Comida"),
		tx("5", core.Expense, "50", ""),
	}

	s := Summarize(txs, TypeExpense)
	assert.True(t, decimal.NewFromInt(550).Equal(s.ExpenseTotal))
	assert.True(t, s.IncomeTotal.IsZero())
	assert.True(t, decimal.NewFromInt(-550).Equal(s.Balance))
	assert.Len(t, s.Rows, 4)

	require.Len(t, s.Categories, 3)
	assert.Equal(t, "Renta", s.Categories[0].Name)
	assert.Equal(t, 54.55, s.Categories[0].Percentage)
	assert.Equal(t, expensePalette[1], s.Categories[0].Color, "color follows first appearance")
	assert.Equal(t, "Comida", s.Categories[1].Name)
	assert.Equal(t, expensePalette[0], s.Categories[1].Color)
	assert.Equal(t, uncategorized, s.Categories[2].Name)

	both := Summarize(txs, TypeBoth)
	assert.True(t, decimal.NewFromInt(4450).Equal(both.Balance))
	assert.Len(t, both.Rows, 5)
	assert.Equal(t, mixedPalette[1], both.Categories[0].Color, "Salario appeared second")
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, TypeIncome)
	assert.True(t, s.Total.IsZero())
	assert.NotNil(t, s.Categories)
	assert.Empty(t, s.Categories)
	assert.Empty(t, PieSlices(s.Categories))
}
