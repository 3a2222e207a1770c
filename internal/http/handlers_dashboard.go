package http

import (
	"net/http"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
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
	summary, err := s.deps.Dashboard.MonthlySummary(r.Context(), userID, period.Year, period.Month)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewJSONResponse().Data(summary).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	if s.deps.Dashboard == nil {
		unavailable(w, "dashboard")
		return
	}
	userID, err := UserIDParam(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	months, err := ParseIntParam(r.URL.Query(), "months", 0)
	if err != nil || months < 0 {
		BadRequestError("invalid months: must be a positive number").Write(w)
		return
	}
	points, err := s.deps.Dashboard.History(r.Context(), userID, months)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewJSONResponse().Data(map[string]any{"history": points}).Write(w)
}

func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	if s.deps.Dashboard == nil {
		unavailable(w, "dashboard")
		return
	}
	userID, err := UserIDParam(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	nw, err := s.deps.Dashboard.NetWorth(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewJSONResponse().Data(nw).Write(w)
}
