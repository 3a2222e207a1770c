package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodBounds(t *testing.T) {
	tests := []struct {
		name     string
		p        Period
		start    time.Time
		end      time.Time
		label    string
		previous Period
	}{
		{"month", Period{2024, 3}, NewDate(2024, 3, 1), NewDate(2024, 4, 1), "2024-03", Period{2024, 2}},
		{"december", Period{2023, 12}, NewDate(2023, 12, 1), NewDate(2024, 1, 1), "2023-12", Period{2023, 11}},
		{"january", Period{2024, 1}, NewDate(2024, 1, 1), NewDate(2024, 2, 1), "2024-01", Period{2023, 12}},
		{"year", Period{Year: 2024}, NewDate(2024, 1, 1), NewDate(2025, 1, 1), "2024", Period{Year: 2023}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.p.Validate())
			assert.Equal(t, tt.start, tt.p.Start())
			assert.Equal(t, tt.end, tt.p.End())
			assert.Equal(t, tt.label, tt.p.String())
			assert.Equal(t, tt.previous, tt.p.Previous())
		})
	}
}

func TestPeriodValidate(t *testing.T) {
	assert.ErrorIs(t, Period{Year: 2024, Month: 13}.Validate(), ErrInvalidPeriod)
	assert.ErrorIs(t, Period{Year: 0, Month: 1}.Validate(), ErrInvalidPeriod)
	assert.Equal(t, Period{2024, 6}, MonthOf(time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC)))
}
