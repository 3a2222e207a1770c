package http

import (
	"net/http"

	"moni/internal/log"
	"moni/internal/report"
)

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	if s.deps.Insights == nil {
		unavailable(w, "insights")
		return
	}
	userID, err := UserIDParam(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	result, err := s.deps.Insights.Patterns(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewJSONResponse().Data(result).Write(w)
}

// handleSnapshot returns the classification last stored by the worker.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	if s.deps.Insights == nil {
		unavailable(w, "insights")
		return
	}
	userID, err := UserIDParam(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	snap, err := s.deps.Insights.Snapshot(r.Context(), userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewJSONResponse().Data(newSnapshotResponse(snap)).Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if s.deps.Reports == nil {
		unavailable(w, "reports")
		return
	}
	var req report.Request
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	req.UserID = sanitizeInput(req.UserID)

	doc, err := s.deps.Reports.Generate(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Report generated",
		log.FieldUserID, req.UserID,
		log.FieldFilename, doc.Filename)
	NewJSONResponse().Data(doc).Write(w)
}
