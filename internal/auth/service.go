// Package auth composes the embedding store, the matcher, and the
// credential issuer into the enrollment and authentication operations the
// transport layer exposes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/facegate/facegate/internal/identity"
	"github.com/facegate/facegate/internal/match"
	"github.com/facegate/facegate/internal/store"
	"github.com/facegate/facegate/internal/token"
)

var (
	// ErrMissingEmbedding is returned when an enrollment or probe arrives
	// without an embedding.
	ErrMissingEmbedding = errors.New("no embedding provided")

	// ErrInvalidEmbedding is returned when an embedding contains
	// non-finite values.
	ErrInvalidEmbedding = errors.New("embedding contains non-finite values")

	// ErrMissingField is returned when display name or contact is absent.
	ErrMissingField = errors.New("display name and contact are required")

	// ErrAuthenticationFailed is the expected outcome when no enrolled
	// identity falls within the match threshold. It is not a server error.
	ErrAuthenticationFailed = errors.New("face not recognized")
)

// EnrollRequest carries the fields of an enrollment.
type EnrollRequest struct {
	DisplayName string
	Contact     string
	Embedding   []float32
	PhotoRef    string
}

// AuthResult is a successful authentication: the signed credential and the
// matched identity.
type AuthResult struct {
	Token    string
	Claims   token.Claims
	Identity identity.Identity
	Distance float64
}

// Service implements enrollment and face authentication.
type Service struct {
	store   store.Store
	matcher *match.Matcher
	issuer  *token.Issuer
}

// NewService wires the service from its collaborators.
func NewService(s store.Store, m *match.Matcher, issuer *token.Issuer) *Service {
	return &Service{store: s, matcher: m, issuer: issuer}
}

// Enroll validates and records a new identity. Validation failures are
// rejected before the store is touched; store errors (duplicate contact,
// dimension mismatch) propagate unchanged. The returned record carries no
// embedding in its JSON form, so handlers can echo it safely.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) (identity.Identity, error) {
	if req.DisplayName == "" || req.Contact == "" {
		return identity.Identity{}, ErrMissingField
	}
	if err := validateEmbedding(req.Embedding); err != nil {
		return identity.Identity{}, err
	}

	rec, err := s.store.Insert(ctx, identity.Identity{
		DisplayName: req.DisplayName,
		Contact:     identity.NormalizeContact(req.Contact),
		Embedding:   req.Embedding,
		PhotoRef:    req.PhotoRef,
	})
	if err != nil {
		return identity.Identity{}, err
	}

	s.matcher.Add(rec)
	return rec, nil
}

// Authenticate matches the probe against the catalog and issues a
// credential for the closest identity within the threshold. It never
// issues a credential without a match, and a signing failure is surfaced
// rather than silently returning the match alone.
func (s *Service) Authenticate(ctx context.Context, probe []float32) (*AuthResult, error) {
	if err := validateEmbedding(probe); err != nil {
		return nil, err
	}

	res, err := s.matcher.Match(ctx, probe)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrAuthenticationFailed
	}

	tok, claims, err := s.issuer.Issue(res.Identity.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing credential: %w", err)
	}

	return &AuthResult{
		Token:    tok,
		Claims:   claims,
		Identity: res.Identity,
		Distance: res.Distance,
	}, nil
}

// Identity loads an enrolled identity by ID, nil when not enrolled.
func (s *Service) Identity(ctx context.Context, id uuid.UUID) (*identity.Identity, error) {
	return s.store.Get(ctx, id)
}

func validateEmbedding(embedding []float32) error {
	if len(embedding) == 0 {
		return ErrMissingEmbedding
	}
	for _, v := range embedding {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return ErrInvalidEmbedding
		}
	}
	return nil
}
