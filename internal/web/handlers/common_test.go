package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/facegate/facegate/internal/auth"
	"github.com/facegate/facegate/internal/extractor"
	"github.com/facegate/facegate/internal/store"
)

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := decodeJSON(t, rec.Body)
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", body["status"])
	}
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{auth.ErrMissingEmbedding, http.StatusBadRequest},
		{auth.ErrInvalidEmbedding, http.StatusBadRequest},
		{auth.ErrMissingField, http.StatusBadRequest},
		{store.ErrDimensionMismatch, http.StatusBadRequest},
		{store.ErrDuplicateIdentity, http.StatusConflict},
		{auth.ErrAuthenticationFailed, http.StatusUnauthorized},
		{extractor.ErrExtractionFailed, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", extractor.ErrExtractionFailed), http.StatusUnprocessableEntity},
		{fmt.Errorf("something broke"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		respondServiceError(rec, tt.err)
		if rec.Code != tt.status {
			t.Errorf("error %q: expected %d, got %d", tt.err, tt.status, rec.Code)
		}
	}
}

func TestSanitizeForLog(t *testing.T) {
	got := sanitizeForLog("evil\ninjection\rattempt")
	if got != "evilinjectionattempt" {
		t.Errorf("expected newlines stripped, got %q", got)
	}
}
