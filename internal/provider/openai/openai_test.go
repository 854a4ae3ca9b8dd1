package openai_test

import (
	"context"
	gohttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/alan-mat/docqa/internal/provider"
	"github.com/alan-mat/docqa/internal/provider/openai"
)

func TestCompatibleServer(t *testing.T) {
	mux := gohttp.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"m","data":[{"object":"embedding","index":0,"embedding":[0.5,0.5]}]}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	opts := provider.Options{BaseURL: srv.URL + "/v1", APIKey: "test", Dimensions: 2}

	e, err := provider.NewEmbedder(context.Background(), openai.Name, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vec, err := e.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("got %v", vec)
	}

	g, err := provider.NewGenerator(context.Background(), openai.Name, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := g.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if out != "hi there" {
		t.Errorf("got '%s', expected 'hi there'", out)
	}
}
