// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/facegate/facegate/internal/auth"
	"github.com/facegate/facegate/internal/extractor"
	"github.com/facegate/facegate/internal/store"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// maxPhotoSize limits multipart photo uploads.
const maxPhotoSize = 20 << 20 // 20 MB

// FeatureExtractor turns a face photo into an embedding vector.
type FeatureExtractor interface {
	Extract(ctx context.Context, photo []byte) ([]float32, error)
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to HTTP status codes. Internal
// failures deliberately return a generic message so nothing about the
// stored records leaks to the caller.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingEmbedding),
		errors.Is(err, auth.ErrInvalidEmbedding),
		errors.Is(err, auth.ErrMissingField),
		errors.Is(err, store.ErrDimensionMismatch):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicateIdentity):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrAuthenticationFailed):
		respondError(w, http.StatusUnauthorized, "authentication failed")
	case errors.Is(err, extractor.ErrExtractionFailed):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// readPhotoFromMultipart parses a multipart form and returns the uploaded
// photo bytes from the "photo" field.
func readPhotoFromMultipart(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		return nil, errors.New("failed to parse multipart form")
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		return nil, errors.New("photo file is required")
	}
	defer file.Close()

	if header.Size > maxPhotoSize {
		return nil, errors.New("photo too large")
	}

	photo, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read photo")
	}
	return photo, nil
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
