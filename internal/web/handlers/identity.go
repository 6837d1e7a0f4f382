package handlers

import (
	"net/http"

	"github.com/facegate/facegate/internal/auth"
	"github.com/facegate/facegate/internal/web/middleware"
)

// IdentityHandler serves the authenticated identity's own record.
type IdentityHandler struct {
	service *auth.Service
}

// NewIdentityHandler creates a new identity handler.
func NewIdentityHandler(service *auth.Service) *IdentityHandler {
	return &IdentityHandler{service: service}
}

// Get returns the identity behind the presented credential.
func (h *IdentityHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := claims.Identity()
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rec, err := h.service.Identity(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}
