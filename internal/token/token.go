// Package token issues and verifies the signed credentials handed out on a
// successful face match. Tokens are compact HMAC-SHA256 signed values
// (base64url header.claims.signature) binding an identity ID to an issue
// time and a fixed expiry.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the credential lifetime used when none is configured.
const DefaultTTL = time.Hour

var (
	// ErrSigningUnavailable is returned when no signing secret is
	// configured. The issuer never falls back to an unsigned token.
	ErrSigningUnavailable = errors.New("signing secret not configured")

	// ErrInvalidToken is returned for malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned for well-formed tokens past their expiry.
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the verifiable statements carried by a credential.
type Claims struct {
	IdentityID string `json:"sub"`
	IssuedAt   int64  `json:"iat"`
	ExpiresAt  int64  `json:"exp"`
}

// Identity returns the identity ID claim as a UUID.
func (c Claims) Identity() (uuid.UUID, error) {
	id, err := uuid.Parse(c.IdentityID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}

// Issuer mints and verifies credentials with an explicit signing secret.
// The secret is injected at construction, never read from ambient state.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer. An empty secret is allowed at construction
// so the service can start degraded; Issue then fails with
// ErrSigningUnavailable per request. A non-positive ttl falls back to
// DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

var header = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

// Issue mints a signed credential for the given identity.
func (i *Issuer) Issue(identityID uuid.UUID) (string, Claims, error) {
	if len(i.secret) == 0 {
		return "", Claims{}, ErrSigningUnavailable
	}

	now := i.now().UTC()
	claims := Claims{
		IdentityID: identityID.String(),
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(i.ttl).Unix(),
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", Claims{}, fmt.Errorf("marshal claims: %w", err)
	}

	signingInput := header + "." + base64.RawURLEncoding.EncodeToString(payload)
	return signingInput + "." + i.sign(signingInput), claims, nil
}

// Verify checks the signature and expiry of a credential and returns its
// claims.
func (i *Issuer) Verify(tok string) (*Claims, error) {
	if len(i.secret) == 0 {
		return nil, ErrSigningUnavailable
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	signingInput := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(i.sign(signingInput)), []byte(parts[2])) {
		return nil, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrInvalidToken
	}

	if i.now().UTC().Unix() >= claims.ExpiresAt {
		return nil, ErrExpiredToken
	}
	return &claims, nil
}

// TTL returns the configured credential lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

func (i *Issuer) sign(data string) string {
	h := hmac.New(sha256.New, i.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
