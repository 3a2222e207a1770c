// Package memory is an in-process ReportExporter for development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"moni/internal/sheets"
)

var _ sheets.ReportExporter = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	rows    []sheets.ReportRow
	batches int
}

func New() *Store {
	return &Store{}
}

// AppendReportRows stores the rows and returns a synthetic batch reference.
func (s *Store) AppendReportRows(_ context.Context, rows []sheets.ReportRow) (string, error) {
	if len(rows) == 0 {
		return "", errors.New("no rows to export")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	s.batches++
	return fmt.Sprintf("mem:%d", s.batches), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []sheets.ReportRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.ReportRow(nil), s.rows...)
}
