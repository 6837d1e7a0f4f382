package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/facegate/facegate/internal/token"
)

func TestRequireAuth(t *testing.T) {
	issuer := token.NewIssuer("test-secret", token.DefaultTTL)

	var gotClaims *token.Claims
	handler := RequireAuth(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	id := uuid.New()
	tok, _, err := issuer.Issue(id)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	t.Run("valid token", func(t *testing.T) {
		gotClaims = nil
		req := httptest.NewRequest("GET", "/api/v1/identity", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if gotClaims == nil {
			t.Fatal("expected claims in context")
		}
		got, err := gotClaims.Identity()
		if err != nil {
			t.Fatalf("failed to parse subject: %v", err)
		}
		if got != id {
			t.Errorf("expected subject %s, got %s", id, got)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/identity", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/identity", nil)
		req.Header.Set("Authorization", tok) // no Bearer prefix
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/identity", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("token signed with different secret", func(t *testing.T) {
		other := token.NewIssuer("other-secret", token.DefaultTTL)
		foreign, _, err := other.Issue(uuid.New())
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}

		req := httptest.NewRequest("GET", "/api/v1/identity", nil)
		req.Header.Set("Authorization", "Bearer "+foreign)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}

func TestGetClaimsFromContextEmpty(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if claims := GetClaimsFromContext(req.Context()); claims != nil {
		t.Errorf("expected nil claims, got %+v", claims)
	}
}
