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

// Package indexing chunks, embeds and stores extracted document text, and
// drives the indexing of whole uploaded archives.
package indexing

import (
	"context"
	"log/slog"

	"github.com/alan-mat/docqa/internal/chunk"
	"github.com/alan-mat/docqa/internal/ingest"
	"github.com/alan-mat/docqa/internal/metrics"
	"github.com/alan-mat/docqa/internal/progress"
	"github.com/alan-mat/docqa/internal/provider"
	"github.com/alan-mat/docqa/internal/vector"
)

const (
	DefaultCollection = "txt-document-vectors"
	DefaultDimensions = 384
)

// Report summarizes the indexing of a single document.
type Report struct {
	FileName string `json:"file_name"`
	Chunks   int    `json:"chunks"`
	Upserted int    `json:"upserted"`
	Failed   int    `json:"failed"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Pipeline struct {
	embedder   provider.Embedder
	store      vector.Store
	extractor  ingest.Extractor
	tracker    progress.Tracker
	metrics    *metrics.Metrics
	collection string
	namespace  string
	dims       uint
	targetSize int
}

type Option func(*Pipeline)

func WithCollection(name string) Option {
	return func(p *Pipeline) {
		p.collection = name
	}
}

func WithNamespace(ns string) Option {
	return func(p *Pipeline) {
		p.namespace = ns
	}
}

// WithDimensions sets the embedding length the pipeline accepts.
func WithDimensions(dims uint) Option {
	return func(p *Pipeline) {
		p.dims = dims
	}
}

func WithTargetSize(size int) Option {
	return func(p *Pipeline) {
		p.targetSize = size
	}
}

func WithExtractor(e ingest.Extractor) Option {
	return func(p *Pipeline) {
		p.extractor = e
	}
}

func WithTracker(t progress.Tracker) Option {
	return func(p *Pipeline) {
		p.tracker = t
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func NewPipeline(embedder provider.Embedder, store vector.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:   embedder,
		store:      store,
		collection: DefaultCollection,
		dims:       DefaultDimensions,
		targetSize: chunk.DefaultTargetSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.extractor == nil {
		p.extractor = ingest.NewPDFExtractor()
	}
	if p.tracker == nil {
		p.tracker = progress.NewMemoryTracker()
	}
	return p
}

func (p *Pipeline) Tracker() progress.Tracker {
	return p.tracker
}

// EnsureCollection creates the target collection if it is missing.
func (p *Pipeline) EnsureCollection(ctx context.Context) error {
	return p.store.EnsureCollection(ctx, p.collection, p.dims)
}

// IndexDocument splits text into chunks and stores one record per chunk
// under the id derived from fileName and the chunk position. Failures of
// individual chunks are logged and counted but never stop the document.
func (p *Pipeline) IndexDocument(ctx context.Context, fileName, text string) Report {
	report := Report{FileName: fileName}

	chunks := chunk.Document(fileName, text, p.targetSize)
	if len(chunks) == 0 {
		slog.Warn("empty or whitespace-only content, skipping", "file", fileName)
		p.metrics.DocumentSkipped()
		report.Skipped = true
		return report
	}
	report.Chunks = len(chunks)

	for _, c := range chunks {
		if err := p.indexChunk(ctx, c); err != nil {
			slog.Error("failed to index chunk", "file", fileName, "chunk", c.Index, "id", c.ID(), "err", err)
			p.metrics.ChunkFailed()
			report.Failed++
			continue
		}
		p.metrics.ChunkIndexed()
		report.Upserted++
	}

	slog.Info("indexed document", "file", fileName, "chunks", report.Chunks, "upserted", report.Upserted, "failed", report.Failed)
	return report
}

func (p *Pipeline) indexChunk(ctx context.Context, c chunk.Chunk) error {
	vec, err := p.embedder.Embed(ctx, c.Text)
	if err != nil {
		return err
	}
	if p.dims > 0 && uint(len(vec)) != p.dims {
		return &DimensionError{Expected: p.dims, Got: len(vec)}
	}

	return p.store.Upsert(ctx, p.collection, &vector.Record{
		ID:        c.ID(),
		Namespace: p.namespace,
		Vector:    vec,
		Metadata: vector.Metadata{
			FileName:   c.FileName,
			ChunkIndex: c.Index,
			Text:       c.Text,
		},
	})
}
