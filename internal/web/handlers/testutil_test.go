package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/facegate/facegate/internal/auth"
	"github.com/facegate/facegate/internal/match"
	"github.com/facegate/facegate/internal/store"
	"github.com/facegate/facegate/internal/token"
)

// testService creates a service backed by an in-memory store.
func testService(t *testing.T) (*auth.Service, *token.Issuer) {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	matcher := match.NewMatcher(s, 0.6)
	issuer := token.NewIssuer("test-secret", token.DefaultTTL)
	return auth.NewService(s, matcher, issuer), issuer
}

// mockExtractor returns a fixed embedding or error for any photo and
// counts how often it is called.
type mockExtractor struct {
	embedding []float32
	err       error
	calls     int
}

func (m *mockExtractor) Extract(ctx context.Context, photo []byte) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.embedding, nil
}

// jsonRequest creates a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest creates a request with a photo file and form fields.
func multipartRequest(t *testing.T, path string, photo []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("photo", "face.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := fw.Write(photo); err != nil {
		t.Fatalf("failed to write photo: %v", err)
	}

	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field %s: %v", key, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// decodeJSON decodes a response body into a map.
func decodeJSON(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var data map[string]any
	if err := json.NewDecoder(body).Decode(&data); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return data
}
