package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func extractionServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL)
}

func TestClient_Extract(t *testing.T) {
	client := extractionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"faces_count": 1,
			"faces": []map[string]any{
				{"face_index": 0, "dim": 3, "embedding": []float32{0.1, 0.2, 0.3}, "det_score": 0.99},
			},
			"model": "buffalo_l",
		})
	})

	emb, err := client.Extract(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0x00, 0x01, 0x02, 0x03, 0x04})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(emb) != 3 || emb[2] != 0.3 {
		t.Errorf("unexpected embedding: %v", emb)
	}
}

func TestClient_Extract_PicksHighestScoreFace(t *testing.T) {
	client := extractionServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"faces_count": 2,
			"faces": []map[string]any{
				{"face_index": 0, "embedding": []float32{1, 1, 1}, "det_score": 0.40},
				{"face_index": 1, "embedding": []float32{2, 2, 2}, "det_score": 0.95},
			},
		})
	})

	emb, err := client.Extract(context.Background(), make([]byte, 16))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if emb[0] != 2 {
		t.Errorf("expected highest-score face embedding, got %v", emb)
	}
}

func TestClient_Extract_NoFace(t *testing.T) {
	client := extractionServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"faces_count": 0, "faces": []any{}})
	})

	_, err := client.Extract(context.Background(), make([]byte, 16))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestClient_Extract_ServiceError(t *testing.T) {
	client := extractionServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Extract(context.Background(), make([]byte, 16))
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"too short", []byte{0x01}, "application/octet-stream"},
		{"unknown", make([]byte, 16), "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.want {
				t.Errorf("detectMIMEType = %q, want %q", got, tt.want)
			}
		})
	}
}
