// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alan-mat/docqa/internal/answer"
	"github.com/alan-mat/docqa/internal/config"
	"github.com/alan-mat/docqa/internal/indexing"
	"github.com/alan-mat/docqa/internal/ingest"
	"github.com/alan-mat/docqa/internal/metrics"
	"github.com/alan-mat/docqa/internal/progress"
	"github.com/alan-mat/docqa/internal/provider"
	"github.com/alan-mat/docqa/internal/vector"
)

// services holds the collaborators shared by every subcommand.
type services struct {
	conf *config.Config

	embedder  provider.Embedder
	store     vector.Store
	extractor ingest.Extractor
	tracker   progress.Tracker
	metrics   *metrics.Metrics

	rdb *redis.Client
}

func newServices(ctx context.Context, conf *config.Config) (*services, error) {
	svc := &services{conf: conf}

	embedder, err := provider.NewEmbedder(ctx, conf.Embedder.Provider, provider.Options{
		Model:      conf.Embedder.Model,
		BaseURL:    conf.Embedder.BaseURL,
		Dimensions: conf.VectorStore.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	svc.embedder = embedder

	extractor, err := ingest.NewExtractor(ingest.ExtractorConfig{
		Provider: conf.Extractor.Provider,
		BaseURL:  conf.Extractor.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}
	svc.extractor = extractor

	store, err := vector.NewStore(vector.Config{
		Type:   conf.VectorStore.Type,
		Host:   conf.VectorStore.Host,
		Port:   conf.VectorStore.Port,
		APIKey: conf.VectorStore.APIKey,
		UseTLS: conf.VectorStore.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	svc.store = store

	switch conf.Progress.Backend {
	case config.ProgressBackendRedis:
		svc.tracker = progress.NewRedisTracker(svc.redis(), conf.Progress.Expiry)
	default:
		svc.tracker = progress.NewMemoryTracker()
	}

	if conf.Metrics.Enabled {
		svc.metrics = metrics.New()
	}

	slog.Debug("services initialized",
		"embedder", conf.Embedder.Provider,
		"vector_store", conf.VectorStore.Type,
		"extractor", conf.Extractor.Provider,
		"progress", conf.Progress.Backend,
	)
	return svc, nil
}

// redis returns the shared redis client, connecting on first use.
func (s *services) redis() *redis.Client {
	if s.rdb == nil {
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     s.conf.Redis.Addr,
			Username: s.conf.Redis.Username,
			Password: s.conf.Redis.Password,
			DB:       s.conf.Redis.DB,
		})
	}
	return s.rdb
}

func (s *services) indexingPipeline() *indexing.Pipeline {
	return indexing.NewPipeline(s.embedder, s.store,
		indexing.WithCollection(s.conf.VectorStore.Collection),
		indexing.WithNamespace(s.conf.VectorStore.Namespace),
		indexing.WithDimensions(s.conf.VectorStore.Dimensions),
		indexing.WithTargetSize(s.conf.Chunker.TargetSize),
		indexing.WithExtractor(s.extractor),
		indexing.WithTracker(s.tracker),
		indexing.WithMetrics(s.metrics),
	)
}

func (s *services) answerPipeline(ctx context.Context) (*answer.Pipeline, error) {
	var temperature float32
	if s.conf.Generator.Temperature != nil {
		temperature = *s.conf.Generator.Temperature
	}

	generator, err := provider.NewGenerator(ctx, s.conf.Generator.Provider, provider.Options{
		Model:       s.conf.Generator.Model,
		BaseURL:     s.conf.Generator.BaseURL,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	return answer.NewPipeline(s.embedder, generator, s.store,
		answer.WithCollection(s.conf.VectorStore.Collection),
		answer.WithNamespace(s.conf.VectorStore.Namespace),
		answer.WithDimensions(s.conf.VectorStore.Dimensions),
		answer.WithTopK(s.conf.Retrieval.TopK),
		answer.WithFallbackContext(s.conf.Retrieval.FallbackContext),
		answer.WithMetrics(s.metrics),
	), nil
}

func (s *services) Close() {
	if err := s.store.Close(); err != nil {
		slog.Warn("failed to close vector store", "err", err)
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			slog.Warn("failed to close redis client", "err", err)
		}
	}
}

func newJobID() string {
	return uuid.NewString()
}
