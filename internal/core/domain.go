package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense TransactionType = "gasto"
	Income  TransactionType = "ingreso"
)

type (
	// TransactionType is the wire value used by the front-end ("gasto", "ingreso").
	TransactionType string

	Transaction struct {
		ID            string
		UserID        string
		Description   string
		Amount        decimal.Decimal // always positive; Type carries the sign
		Date          time.Time
		Type          TransactionType
		PaymentMethod string // optional
		Account       string // optional
		CategoryID    string // optional
		CategoryName  string // joined from categories, may be empty
	}

	Category struct {
		ID     string
		UserID string
		Name   string
		Type   TransactionType
		Color  string
	}

	Asset struct {
		ID       string
		UserID   string
		Name     string
		Category string
		Value    decimal.Decimal
		Cost     decimal.Decimal // acquisition cost, zero when unknown
	}

	Liability struct {
		ID       string
		UserID   string
		Name     string
		Category string
		Balance  decimal.Decimal
	}

	Budget struct {
		ID           string
		UserID       string
		CategoryID   string
		CategoryName string
		MonthlyLimit decimal.Decimal
	}
)

var (
	ErrMissingUserID    = errors.New("missing user id")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyDescription = errors.New("empty description")
	ErrLongDescription  = errors.New("description too long (max 200 characters)")
	ErrEmptyName        = errors.New("empty name")
	ErrNotFound         = errors.New("not found")
)

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	return t == Expense || t == Income
}

// ParseTransactionType accepts the wire values plus their English aliases.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gasto", "expense":
		return Expense, nil
	case "ingreso", "income":
		return Income, nil
	default:
		return "", ErrInvalidType
	}
}

// NewDate creates a UTC date from year, month, day
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// RequireUserID returns ErrMissingUserID when id is blank.
func RequireUserID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingUserID
	}
	return nil
}

func (t Transaction) IsExpense() bool {
	return t.Type == Expense
}

func (t Transaction) Validate() error {
	if err := RequireUserID(t.UserID); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrLongDescription
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

func (c Category) Validate() error {
	if err := RequireUserID(c.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

func (a Asset) Validate() error {
	if err := RequireUserID(a.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if a.Value.IsNegative() || a.Cost.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (l Liability) Validate() error {
	if err := RequireUserID(l.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(l.Name) == "" {
		return ErrEmptyName
	}
	if l.Balance.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (b Budget) Validate() error {
	if err := RequireUserID(b.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return errors.New("empty category")
	}
	if !b.MonthlyLimit.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
