package http

import (
	"net/http"
	"strings"

	"moni/internal/core"
	"moni/internal/storage"
)

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if s.deps.Transactions == nil {
		unavailable(w, "transactions")
		return
	}
	if r.Method == http.MethodPost {
		s.handleCreateTransaction(w, r)
		return
	}
	s.handleListTransactions(w, r)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	tx, err := req.toTransaction()
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := s.deps.Transactions.Create(r.Context(), &tx); err != nil {
		WriteError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(newTransactionResponse(tx)).Write(w)
}

// handleListTransactions returns the transactions of one month (or year with
// month=0), optionally filtered by type.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDParam(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	query := r.URL.Query()
	period, err := ParseMonthParams(query, s.now())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var typ core.TransactionType
	if v := strings.TrimSpace(query.Get("type")); v != "" {
		if typ, err = core.ParseTransactionType(v); err != nil {
			WriteError(w, r, err)
			return
		}
	}

	txs, err := s.deps.Transactions.List(r.Context(), storage.PeriodFilter(userID, period, typ))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionResponse(t))
	}
	NewJSONResponse().Data(transactionListResponse{
		Period:       period.String(),
		Count:        len(out),
		Transactions: out,
	}).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodDelete); resp != nil {
		resp.Write(w)
		return
	}
	if s.deps.Transactions == nil {
		unavailable(w, "transactions")
		return
	}
	userID, err := UserIDParam(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		BadRequestError("missing transaction id").Write(w)
		return
	}

	if err := s.deps.Transactions.Delete(r.Context(), userID, id); err != nil {
		WriteError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
