package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientDisabledWithoutKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestComplete(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Buen mes de ahorro.  "}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL, APIKey: "secret", Model: "test-model", MaxTokens: 50})
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), []Message{
		{Role: "system", Content: "Eres un asesor financiero."},
		{Role: "user", Content: "Resume"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Buen mes de ahorro.", text)
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 50, got.MaxTokens)
	assert.Len(t, got.Messages, 2)
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, "status 429"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no completion choices"},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"content":"   "}}]}`, "empty completion"},
		{"malformed", http.StatusOK, `not json`, "parse completion response"},
		{"api error body", http.StatusOK, `{"error":{"message":"bad model"}}`, "bad model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewClient(Config{Endpoint: srv.URL, APIKey: "k"})
			require.NoError(t, err)
			_, err = c.Complete(context.Background(), []Message{{Role: "user", Content: "x"}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
