package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/facegate/facegate/internal/auth"
)

// EnrollHandler handles identity enrollment endpoints.
type EnrollHandler struct {
	service   *auth.Service
	extractor FeatureExtractor
}

// NewEnrollHandler creates a new enrollment handler.
func NewEnrollHandler(service *auth.Service, extractor FeatureExtractor) *EnrollHandler {
	return &EnrollHandler{
		service:   service,
		extractor: extractor,
	}
}

type enrollRequest struct {
	DisplayName string    `json:"display_name"`
	Contact     string    `json:"contact"`
	Embedding   []float32 `json:"embedding"`
	PhotoRef    string    `json:"photo_ref,omitempty"`
}

// Enroll registers a new identity. The request carries either a JSON body
// with a precomputed embedding or a multipart form with a face photo that
// is sent to the extraction service.
func (h *EnrollHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest

	if isMultipart(r) {
		photo, err := readPhotoFromMultipart(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		// Reject incomplete forms before the extraction round trip.
		displayName := r.FormValue("display_name")
		contact := r.FormValue("contact")
		if displayName == "" || contact == "" {
			respondServiceError(w, auth.ErrMissingField)
			return
		}

		embedding, err := h.extractor.Extract(r.Context(), photo)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		req = enrollRequest{
			DisplayName: displayName,
			Contact:     contact,
			Embedding:   embedding,
			PhotoRef:    r.FormValue("photo_ref"),
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
	}

	rec, err := h.service.Enroll(r.Context(), auth.EnrollRequest{
		DisplayName: req.DisplayName,
		Contact:     req.Contact,
		Embedding:   req.Embedding,
		PhotoRef:    req.PhotoRef,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("enrolled identity %s (%s)", rec.ID, sanitizeForLog(rec.Contact))
	respondJSON(w, http.StatusCreated, rec)
}
