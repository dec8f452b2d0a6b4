package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newEmbedServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEmbedderReturnsOneVectorPerText(t *testing.T) {
	srv := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	})

	e := NewOllamaEmbedder(Options{Model: "m", Dimension: 3, OllamaHost: srv.URL})
	vectors, err := e.Embed(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if len(vectors[0]) != 3 {
		t.Fatalf("expected dimension 3, got %d", len(vectors[0]))
	}
}

func TestOllamaEmbedderRejectsDimensionMismatch(t *testing.T) {
	srv := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float64{0.1, 0.2}})
	})

	e := NewOllamaEmbedder(Options{Model: "m", Dimension: 3, OllamaHost: srv.URL})
	if _, err := e.Embed(context.Background(), []string{"one"}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestOllamaEmbedderSurfacesAPIError(t *testing.T) {
	srv := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	})

	e := NewOllamaEmbedder(Options{Model: "missing", OllamaHost: srv.URL})
	if _, err := e.Embed(context.Background(), []string{"one"}); err == nil {
		t.Fatal("expected API error to surface")
	}
}

func TestOllamaEmbedderSkipsRequestForEmptyInput(t *testing.T) {
	srv := newEmbedServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty batch")
	})

	e := NewOllamaEmbedder(Options{Model: "m", OllamaHost: srv.URL})
	vectors, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if vectors != nil {
		t.Fatalf("expected no vectors, got %v", vectors)
	}
}
