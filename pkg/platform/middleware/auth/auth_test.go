package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlguard/pkg/domain"
	"amlguard/pkg/platform/httputil"
	"amlguard/pkg/requestcontext"
)

type stubValidator struct {
	actor domain.Actor
	err   error
}

func (s stubValidator) ValidateActor(string) (domain.Actor, error) {
	return s.actor, s.err
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func okHandler(t *testing.T, want domain.Actor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, want, requestcontext.Actor(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuth(t *testing.T) {
	officer := domain.Actor{ID: "u-1", Name: "Lena", Role: domain.RoleOfficer}

	tests := []struct {
		name      string
		header    string
		validator stubValidator
		status    int
	}{
		{"missing header", "", stubValidator{actor: officer}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", stubValidator{actor: officer}, http.StatusUnauthorized},
		{"invalid token", "Bearer bad", stubValidator{err: errors.New("invalid")}, http.StatusUnauthorized},
		{"valid token", "Bearer good", stubValidator{actor: officer}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/entities", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			RequireAuth(tt.validator, discard)(okHandler(t, officer)).ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"error":"unauthorized"`)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		actor  domain.Actor
		status int
	}{
		{"no actor", domain.Actor{}, http.StatusUnauthorized},
		{"viewer below officer", domain.Actor{ID: "v", Role: domain.RoleViewer}, http.StatusForbidden},
		{"officer meets officer", domain.Actor{ID: "o", Role: domain.RoleOfficer}, http.StatusNoContent},
		{"admin exceeds officer", domain.Actor{ID: "a", Role: domain.RoleAdmin}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/entities", nil)
			req = req.WithContext(requestcontext.WithActor(req.Context(), tt.actor))
			rec := httptest.NewRecorder()
			RequireRole(domain.RoleOfficer, discard)(okHandler(t, tt.actor)).ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestWriteJSONErrorEscapesText(t *testing.T) {
	rec := httptest.NewRecorder()
	desc := `token "abc" rejected: \ path`
	writeJSONError(rec, http.StatusUnauthorized, "unauthorized", desc)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body.Error)
	assert.Equal(t, desc, body.ErrorDescription)
}
