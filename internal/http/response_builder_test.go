package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"moni/internal/core"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		Data(map[string]int{"count": 2}).
		Write(w)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "value", w.Header().Get("X-Custom"))
	assert.JSONEq(t, `{"count":2}`, w.Body.String())
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().Status(http.StatusNoContent).Write(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().Data(map[string]any{"bad": make(chan int)}).Write(w)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"failed to encode response"}`, w.Body.String())
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		builder    *JSONResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{"bad request", BadRequestError("missing user id"), http.StatusBadRequest, `{"error":"missing user id"}`},
		{"not found", NotFoundError("route not found"), http.StatusNotFound, `{"error":"route not found"}`},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError, `{"error":"boom"}`},
		{"rate limit", TooManyRequestsError(), http.StatusTooManyRequests, `{"error":"rate limit exceeded"}`},
		{"method", MethodNotAllowedError("GET, POST"), http.StatusMethodNotAllowed, `{"error":"method not allowed"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}

	w := httptest.NewRecorder()
	MethodNotAllowedError("DELETE").Write(w)
	assert.Equal(t, "DELETE", w.Header().Get("Allow"))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrMissingUserID, http.StatusBadRequest},
		{fmt.Errorf("create transaction: %w", core.ErrInvalidAmount), http.StatusBadRequest},
		{fmt.Errorf("%w: month 13", core.ErrInvalidPeriod), http.StatusBadRequest},
		{fmt.Errorf("create transaction: %w", core.ErrLongDescription), http.StatusBadRequest},
		{fmt.Errorf("delete transaction tx-1: %w", core.ErrNotFound), http.StatusNotFound},
		{errors.New("database is locked"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusForError(tt.err))
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)

	WriteError(w, r, fmt.Errorf("summary: %w", core.ErrMissingUserID))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"summary: missing user id"}`, w.Body.String())
}
