package jina_test

import (
	"context"
	"encoding/json"
	gohttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/provider"
	"github.com/alan-mat/docqa/internal/provider/jina"
)

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if req["dimensions"] != float64(3) {
			t.Errorf("got dimensions %v, expected 3", req["dimensions"])
		}
		w.Write([]byte(`{"model":"jina-embeddings-v3","data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	e, err := provider.NewEmbedder(context.Background(), jina.Name, provider.Options{
		BaseURL:    srv.URL,
		APIKey:     "test",
		Dimensions: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || e.Dimensions() != 3 {
		t.Errorf("got %v with %d dimensions", vec, e.Dimensions())
	}
}

func TestEmbedError(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.WriteHeader(gohttp.StatusUnauthorized)
	}))
	defer srv.Close()

	e := jina.New(provider.Options{BaseURL: srv.URL, APIKey: "bad"})
	_, err := e.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if apperr.KindOf(err) != apperr.KindExternal {
		t.Errorf("expected external error, got '%s'", apperr.KindOf(err))
	}
}
