package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/facegate/facegate/internal/auth"
	"github.com/facegate/facegate/internal/identity"
)

// AuthenticateHandler handles face authentication endpoints.
type AuthenticateHandler struct {
	service   *auth.Service
	extractor FeatureExtractor
}

// NewAuthenticateHandler creates a new authentication handler.
func NewAuthenticateHandler(service *auth.Service, extractor FeatureExtractor) *AuthenticateHandler {
	return &AuthenticateHandler{
		service:   service,
		extractor: extractor,
	}
}

type authenticateRequest struct {
	Embedding []float32 `json:"embedding"`
}

type authenticateResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Identity  identity.Identity `json:"identity"`
}

// Authenticate matches a probe against the enrolled identities and returns
// a signed credential on success. Like enrollment, the probe arrives either
// as a JSON embedding or as a multipart photo.
func (h *AuthenticateHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var probe []float32

	if isMultipart(r) {
		photo, err := readPhotoFromMultipart(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		probe, err = h.extractor.Extract(r.Context(), photo)
		if err != nil {
			respondServiceError(w, err)
			return
		}
	} else {
		var req authenticateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		probe = req.Embedding
	}

	result, err := h.service.Authenticate(r.Context(), probe)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, authenticateResponse{
		Token:     result.Token,
		ExpiresAt: time.Unix(result.Claims.ExpiresAt, 0).UTC(),
		Identity:  result.Identity,
	})
}
