// Package metrics holds the prometheus collectors of the indexing and
// answering pipelines. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docqa"

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

type Metrics struct {
	registry *prometheus.Registry

	ChunksIndexed    prometheus.Counter
	ChunkFailures    prometheus.Counter
	DocumentsSkipped prometheus.Counter
	Answers          *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ChunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Chunks embedded and upserted into the vector index.",
		}),
		ChunkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_failures_total",
			Help:      "Chunks that could not be embedded or upserted.",
		}),
		DocumentsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_skipped_total",
			Help:      "Documents skipped because no text was extracted.",
		}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Key points processed, by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ChunksIndexed,
		m.ChunkFailures,
		m.DocumentsSkipped,
		m.Answers,
		m.HTTPRequests,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ChunkIndexed() {
	if m == nil {
		return
	}
	m.ChunksIndexed.Inc()
}

func (m *Metrics) ChunkFailed() {
	if m == nil {
		return
	}
	m.ChunkFailures.Inc()
}

func (m *Metrics) DocumentSkipped() {
	if m == nil {
		return
	}
	m.DocumentsSkipped.Inc()
}

func (m *Metrics) Answer(outcome string) {
	if m == nil {
		return
	}
	m.Answers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) HTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
