// Package answer answers key-point questions from the indexed documents.
package answer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/metrics"
	"github.com/alan-mat/docqa/internal/provider"
	"github.com/alan-mat/docqa/internal/vector"
)

const (
	DefaultTopK            = 40
	DefaultNumKeyPoints    = 3
	DefaultFallbackContext = "No relevant text found."

	errorAnswerPrefix = "Error generating answer: "
)

var ErrKeyPointOutOfRange = errors.New("number of key points out of range")

const promptAnswerWithContext = `Answer the following question using the document excerpt provided below.
If the excerpt does not contain the answer, say so briefly.

**QUESTION:**
{{.Question}}

**DOCUMENT EXCERPT:**
{{.Context}}
`

type Answer struct {
	KeyPoint  string `json:"key_point"`
	Answer    string `json:"answer"`
	ErrorKind string `json:"error_kind,omitempty"`
}

type Pipeline struct {
	embedder   provider.Embedder
	generator  provider.Generator
	store      vector.Store
	metrics    *metrics.Metrics
	collection string
	namespace  string
	dims       uint
	topK       uint
	fallback   string

	templateAnswerWithContext *template.Template
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

func WithDimensions(dims uint) Option {
	return func(p *Pipeline) {
		p.dims = dims
	}
}

func WithTopK(k uint) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithFallbackContext sets the context used when the index has no match.
func WithFallbackContext(s string) Option {
	return func(p *Pipeline) {
		if s != "" {
			p.fallback = s
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func NewPipeline(embedder provider.Embedder, generator provider.Generator, store vector.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:   embedder,
		generator:  generator,
		store:      store,
		collection: "txt-document-vectors",
		dims:       384,
		topK:       DefaultTopK,
		fallback:   DefaultFallbackContext,

		templateAnswerWithContext: template.Must(template.New("promptAnswerWithContext").Parse(promptAnswerWithContext)),
	}

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Answer processes the first numKeyPoints key points in order and returns
// one answer per processed key point. Key points whose query embedding has
// the wrong length are logged and left out of the result. Failures of
// embedding, retrieval or generation become error answers so the
// remaining key points are still processed.
func (p *Pipeline) Answer(ctx context.Context, keyPoints []string, numKeyPoints int) ([]Answer, error) {
	if numKeyPoints < 0 || numKeyPoints > len(keyPoints) {
		return nil, apperr.Input("answer", fmt.Errorf("%w: requested %d, got %d key points", ErrKeyPointOutOfRange, numKeyPoints, len(keyPoints)))
	}

	answers := make([]Answer, 0, numKeyPoints)
	for _, kp := range keyPoints[:numKeyPoints] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a, ok := p.answerKeyPoint(ctx, kp)
		if !ok {
			p.metrics.Answer(metrics.OutcomeSkipped)
			continue
		}
		if a.ErrorKind != "" {
			p.metrics.Answer(metrics.OutcomeError)
		} else {
			p.metrics.Answer(metrics.OutcomeOK)
		}
		answers = append(answers, a)
	}

	return answers, nil
}

func (p *Pipeline) answerKeyPoint(ctx context.Context, keyPoint string) (Answer, bool) {
	query, err := provider.EmbedQuery(ctx, p.embedder, keyPoint)
	if err != nil {
		slog.Error("failed to embed key point", "key_point", keyPoint, "err", err)
		return errorAnswer(keyPoint, err), true
	}
	if p.dims > 0 && uint(len(query)) != p.dims {
		slog.Warn("query vector dimension is incorrect, skipping key point", "key_point", keyPoint, "expected", p.dims, "got", len(query))
		return Answer{}, false
	}

	modelContext, err := p.retrieveContext(ctx, keyPoint, query)
	if err != nil {
		slog.Error("failed to query vector index", "key_point", keyPoint, "err", err)
		return errorAnswer(keyPoint, err), true
	}

	var buf bytes.Buffer
	err = p.templateAnswerWithContext.Execute(&buf, struct {
		Question string
		Context  string
	}{
		Question: keyPoint,
		Context:  modelContext,
	})
	if err != nil {
		return errorAnswer(keyPoint, apperr.Internal("render prompt", err)), true
	}

	out, err := p.generator.Generate(ctx, buf.String())
	if err != nil {
		slog.Error("failed to generate answer", "key_point", keyPoint, "err", err)
		return errorAnswer(keyPoint, err), true
	}

	return Answer{KeyPoint: keyPoint, Answer: strings.TrimSpace(out)}, true
}

// retrieveContext returns the text of the best match for the query, or
// the fallback context when the index has none. A collection that was
// never created counts as an empty index.
func (p *Pipeline) retrieveContext(ctx context.Context, keyPoint string, query []float32) (string, error) {
	params := vector.NewQueryParams(p.collection, query,
		vector.WithLimit(p.topK),
		vector.WithNamespace(p.namespace),
		vector.WithPayload(true),
	)

	matches, err := p.store.Query(ctx, params)
	if err != nil && !errors.Is(err, vector.ErrCollectionNotFound) {
		return "", err
	}
	if len(matches) == 0 {
		slog.Info("no results found for key point", "key_point", keyPoint)
		return p.fallback, nil
	}
	return matches[0].Metadata.Text, nil
}

func errorAnswer(keyPoint string, err error) Answer {
	return Answer{
		KeyPoint:  keyPoint,
		Answer:    errorAnswerPrefix + err.Error(),
		ErrorKind: errorKind(err),
	}
}

func errorKind(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Kind.String()
	}
	return apperr.KindExternal.String()
}
