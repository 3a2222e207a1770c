package http

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"moni/internal/core"
	"moni/internal/storage"
)

type transactionRequest struct {
	UserID        string          `json:"user_id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	Type          string          `json:"type"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Account       string          `json:"account,omitempty"`
	CategoryID    string          `json:"category_id,omitempty"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	date, err := ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		UserID:        sanitizeInput(req.UserID),
		Description:   sanitizeInput(req.Description),
		Amount:        req.Amount,
		Date:          date,
		Type:          typ,
		PaymentMethod: sanitizeInput(req.PaymentMethod),
		Account:       sanitizeInput(req.Account),
		CategoryID:    sanitizeInput(req.CategoryID),
	}, nil
}

type transactionResponse struct {
	ID            string               `json:"id"`
	Description   string               `json:"description"`
	Amount        decimal.Decimal      `json:"amount"`
	Date          string               `json:"date"`
	Type          core.TransactionType `json:"type"`
	PaymentMethod string               `json:"payment_method,omitempty"`
	Account       string               `json:"account,omitempty"`
	CategoryID    string               `json:"category_id,omitempty"`
	CategoryName  string               `json:"category_name,omitempty"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		Description:   t.Description,
		Amount:        t.Amount,
		Date:          t.Date.Format(time.DateOnly),
		Type:          t.Type,
		PaymentMethod: t.PaymentMethod,
		Account:       t.Account,
		CategoryID:    t.CategoryID,
		CategoryName:  t.CategoryName,
	}
}

type transactionListResponse struct {
	Period       string                `json:"period"`
	Count        int                   `json:"count"`
	Transactions []transactionResponse `json:"transactions"`
}

type categoryRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Color  string `json:"color,omitempty"`
}

type categoryResponse struct {
	ID    string               `json:"id"`
	Name  string               `json:"name"`
	Type  core.TransactionType `json:"type"`
	Color string               `json:"color,omitempty"`
}

type assetRequest struct {
	UserID   string          `json:"user_id"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Value    decimal.Decimal `json:"value"`
	Cost     decimal.Decimal `json:"cost"`
}

type liabilityRequest struct {
	UserID   string          `json:"user_id"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Balance  decimal.Decimal `json:"balance"`
}

type budgetRequest struct {
	UserID       string          `json:"user_id"`
	CategoryID   string          `json:"category_id"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
}

type idResponse struct {
	ID string `json:"id"`
}

type snapshotResponse struct {
	UserID       string          `json:"user_id"`
	ComputedAt   time.Time       `json:"computed_at"`
	RulesVersion string          `json:"rules_version"`
	Patterns     json.RawMessage `json:"patterns"`
}

func newSnapshotResponse(s storage.PatternSnapshot) snapshotResponse {
	payload := json.RawMessage(s.Payload)
	if !json.Valid(payload) {
		payload = json.RawMessage("null")
	}
	return snapshotResponse{
		UserID:       s.UserID,
		ComputedAt:   s.ComputedAt.UTC(),
		RulesVersion: s.RulesVersion,
		Patterns:     payload,
	}
}
