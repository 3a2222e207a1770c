package http

import (
	"net/http"

	"moni/internal/core"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if s.deps.Accounts == nil {
		unavailable(w, "accounts")
		return
	}

	if r.Method == http.MethodGet {
		userID, err := UserIDParam(r)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		cats, err := s.deps.Accounts.ListCategories(r.Context(), userID)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		out := make([]categoryResponse, 0, len(cats))
		for _, c := range cats {
			out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Type: c.Type, Color: c.Color})
		}
		NewJSONResponse().Data(map[string]any{"categories": out}).Write(w)
		return
	}

	var req categoryRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	c := core.Category{
		UserID: sanitizeInput(req.UserID),
		Name:   sanitizeInput(req.Name),
		Type:   typ,
		Color:  sanitizeInput(req.Color),
	}
	if err := c.Validate(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Accounts.CreateCategory(r.Context(), &c); err != nil {
		WriteError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Data(categoryResponse{ID: c.ID, Name: c.Name, Type: c.Type, Color: c.Color}).
		Write(w)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if s.deps.Accounts == nil {
		unavailable(w, "accounts")
		return
	}
	var req assetRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	a := core.Asset{
		UserID:   sanitizeInput(req.UserID),
		Name:     sanitizeInput(req.Name),
		Category: sanitizeInput(req.Category),
		Value:    req.Value,
		Cost:     req.Cost,
	}
	if err := a.Validate(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Accounts.CreateAsset(r.Context(), &a); err != nil {
		WriteError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(idResponse{ID: a.ID}).Write(w)
}

func (s *Server) handleCreateLiability(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if s.deps.Accounts == nil {
		unavailable(w, "accounts")
		return
	}
	var req liabilityRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	l := core.Liability{
		UserID:   sanitizeInput(req.UserID),
		Name:     sanitizeInput(req.Name),
		Category: sanitizeInput(req.Category),
		Balance:  req.Balance,
	}
	if err := l.Validate(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Accounts.CreateLiability(r.Context(), &l); err != nil {
		WriteError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(idResponse{ID: l.ID}).Write(w)
}

// handleBudgets returns budget progress for a month (GET) or upserts a
// category budget (POST).
func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}

	if r.Method == http.MethodGet {
		if s.deps.Dashboard == nil {
			unavailable(w, "dashboard")
			return
		}
		userID, err := UserIDParam(r)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		period, err := ParseMonthParams(r.URL.Query(), s.now())
		if err != nil {
			WriteError(w, r, err)
			return
		}
		progress, err := s.deps.Dashboard.BudgetProgress(r.Context(), userID, period.Year, period.Month)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		NewJSONResponse().Data(map[string]any{"period": period.String(), "budgets": progress}).Write(w)
		return
	}

	if s.deps.Accounts == nil {
		unavailable(w, "accounts")
		return
	}
	var req budgetRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	b := core.Budget{
		UserID:       sanitizeInput(req.UserID),
		CategoryID:   sanitizeInput(req.CategoryID),
		MonthlyLimit: req.MonthlyLimit,
	}
	if err := b.Validate(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.deps.Accounts.UpsertBudget(r.Context(), &b); err != nil {
		WriteError(w, r, err)
		return
	}
	NewJSONResponse().Data(idResponse{ID: b.ID}).Write(w)
}
