package storage

import (
	"context"
	"fmt"
	"time"

	"moni/internal/core"
)

// PageSize is the number of rows requested per page by FetchAll.
const PageSize = 1000

// Filter selects a user's transactions. Zero From/To leave the range open;
// To is exclusive. An empty Type matches both income and expenses.
type Filter struct {
	UserID string
	From   time.Time
	To     time.Time
	Type   core.TransactionType
}

// PeriodFilter covers the whole of p.
func PeriodFilter(userID string, p core.Period, typ core.TransactionType) Filter {
	return Filter{UserID: userID, From: p.Start(), To: p.End(), Type: typ}
}

// PageLister is the paginated read side of the transaction store.
type PageLister interface {
	ListTransactionsPage(ctx context.Context, f Filter, offset, limit int) ([]core.Transaction, error)
}

// FetchAll reads every transaction matching f, one page at a time, until a
// page comes back shorter than PageSize.
func FetchAll(ctx context.Context, src PageLister, f Filter) ([]core.Transaction, error) {
	if err := core.RequireUserID(f.UserID); err != nil {
		return nil, err
	}
	all := []core.Transaction{}
	for offset := 0; ; offset += PageSize {
		page, err := src.ListTransactionsPage(ctx, f, offset, PageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch transactions page at offset %d: %w", offset, err)
		}
		all = append(all, page...)
		if len(page) < PageSize {
			return all, nil
		}
	}
}
