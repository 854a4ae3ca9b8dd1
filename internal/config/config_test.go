package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alan-mat/docqa/internal/config"
)

func TestDefault(t *testing.T) {
	c := config.Default()

	if c.Server.Addr() != ":8080" {
		t.Errorf("got addr '%s', expected ':8080'", c.Server.Addr())
	}
	if c.VectorStore.Collection != "txt-document-vectors" {
		t.Errorf("got collection '%s'", c.VectorStore.Collection)
	}
	if c.VectorStore.Dimensions != 384 {
		t.Errorf("got dimensions %d, expected 384", c.VectorStore.Dimensions)
	}
	if c.Generator.Model != "gemini-1.5-flash" {
		t.Errorf("got generator model '%s'", c.Generator.Model)
	}
	if c.Chunker.TargetSize != 500 {
		t.Errorf("got target size %d, expected 500", c.Chunker.TargetSize)
	}
	if c.Retrieval.TopK != 40 {
		t.Errorf("got top_k %d, expected 40", c.Retrieval.TopK)
	}
	if c.Server.ProgressInterval != 500*time.Millisecond {
		t.Errorf("got progress interval %v", c.Server.ProgressInterval)
	}
	if !c.Metrics.Enabled {
		t.Errorf("expected metrics enabled by default")
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
server:
  listen_host: 127.0.0.1
  listen_port: 9000
  async: true
  progress_interval: 2s
progress:
  backend: redis
vector_store:
  type: memory
  collection: docs
  dimensions: 768
embedder:
  provider: openai
  model: text-embedding-3-small
  base_url: http://localhost:8081/v1
generator:
  provider: ollama
  temperature: 0.2
chunker:
  target_size: 300
metrics:
  enabled: false
log:
  level: DEBUG
  format: json
`)

	c, err := config.Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Server.Addr() != "127.0.0.1:9000" || !c.Server.Async {
		t.Errorf("unexpected server config %+v", c.Server)
	}
	if c.Server.ProgressInterval != 2*time.Second {
		t.Errorf("got progress interval %v, expected 2s", c.Server.ProgressInterval)
	}
	if c.Progress.Backend != config.ProgressBackendRedis {
		t.Errorf("got progress backend '%s'", c.Progress.Backend)
	}
	if c.VectorStore.Type != "memory" || c.VectorStore.Collection != "docs" || c.VectorStore.Dimensions != 768 {
		t.Errorf("unexpected vector store config %+v", c.VectorStore)
	}
	if c.Embedder.BaseURL != "http://localhost:8081/v1" {
		t.Errorf("got embedder base url '%s'", c.Embedder.BaseURL)
	}
	if c.Generator.Model != "" {
		t.Errorf("non-gemini generator should keep its backend default, got '%s'", c.Generator.Model)
	}
	if c.Generator.Temperature == nil || *c.Generator.Temperature != 0.2 {
		t.Errorf("unexpected temperature %v", c.Generator.Temperature)
	}
	if c.Chunker.TargetSize != 300 {
		t.Errorf("got target size %d", c.Chunker.TargetSize)
	}
	if c.Metrics.Enabled {
		t.Errorf("expected metrics disabled")
	}
	if c.Extractor.Provider != "pdfcpu" {
		t.Errorf("got extractor '%s', expected default 'pdfcpu'", c.Extractor.Provider)
	}

	level, err := c.LogLevel()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level != slog.LevelDebug {
		t.Errorf("got level %v, expected debug", level)
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []struct {
		name string
		data string
		err  error
	}{
		{"progress backend", "progress:\n  backend: etcd\n", config.ErrInvalidProgressBackend},
		{"log format", "log:\n  format: xml\n", config.ErrInvalidLogFormat},
		{"log level", "log:\n  level: loud\n", config.ErrInvalidLogLevel},
		{"async without redis", "server:\n  async: true\n", config.ErrAsyncRequiresRedis},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := config.Parse([]byte(c.data))
			if !errors.Is(err, c.err) {
				t.Errorf("expected %v, got %v", c.err, err)
			}
		})
	}

	if _, err := config.Parse([]byte("server: [")); err == nil {
		t.Errorf("expected error for malformed yaml")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docqa.yaml")
	if err := os.WriteFile(path, []byte("worker:\n  concurrency: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QDRANT_API_KEY", "secret")

	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Worker.Concurrency != 2 {
		t.Errorf("got concurrency %d, expected 2", c.Worker.Concurrency)
	}
	if c.VectorStore.APIKey != "secret" {
		t.Errorf("api key not read from environment")
	}

	if _, err := config.Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("expected error for missing explicit config path")
	}
}
