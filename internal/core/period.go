package core

import (
	"errors"
	"fmt"
	"time"
)

// Period is a reporting window: a single month, or a full year when Month is 0.
type Period struct {
	Year  int
	Month int
}

var ErrInvalidPeriod = errors.New("invalid period")

func (p Period) Validate() error {
	if p.Year < 1900 || p.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
	}
	if p.Month < 0 || p.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, p.Month)
	}
	return nil
}

func (p Period) IsYear() bool { return p.Month == 0 }

// Start is the first instant of the period (UTC).
func (p Period) Start() time.Time {
	if p.IsYear() {
		return NewDate(p.Year, 1, 1)
	}
	return NewDate(p.Year, p.Month, 1)
}

// End is the first instant after the period.
func (p Period) End() time.Time {
	if p.IsYear() {
		return p.Start().AddDate(1, 0, 0)
	}
	return p.Start().AddDate(0, 1, 0)
}

// Previous returns the preceding month, or the preceding year for yearly periods.
func (p Period) Previous() Period {
	if p.IsYear() {
		return Period{Year: p.Year - 1}
	}
	d := p.Start().AddDate(0, -1, 0)
	return Period{Year: d.Year(), Month: int(d.Month())}
}

// String returns "2024-03" for a month and "2024" for a year.
func (p Period) String() string {
	if p.IsYear() {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// MonthOf returns the monthly period containing t.
func MonthOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}
