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

// Package provider defines the embedding and text generation interfaces
// the pipelines depend on, plus a name-keyed registry of vendor backends.
//
// Backends register themselves from their init functions, so a binary
// selects the vendors it supports with blank imports:
//
//	import _ "github.com/alan-mat/docqa/internal/provider/gemini"
package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/alan-mat/docqa/internal/registry"
)

var (
	ErrUnknownProvider = errors.New("no provider registered for given name")
	ErrEmptyEmbedding  = errors.New("provider returned no embedding")
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions is the vector length the embedder was configured for.
	Dimensions() uint
}

// Generator produces a free-form text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options configures a backend. Zero values select backend defaults.
type Options struct {
	Model       string
	BaseURL     string
	APIKey      string
	Dimensions  uint
	Temperature float32
}

type (
	EmbedderFactory  func(ctx context.Context, opts Options) (Embedder, error)
	GeneratorFactory func(ctx context.Context, opts Options) (Generator, error)
)

var (
	embedders  = registry.New[string, EmbedderFactory]()
	generators = registry.New[string, GeneratorFactory]()
)

func RegisterEmbedder(name string, f EmbedderFactory) {
	embedders.Register(name, f)
}

func RegisterGenerator(name string, f GeneratorFactory) {
	generators.Register(name, f)
}

func Embedders() []string {
	return embedders.List()
}

func Generators() []string {
	return generators.List()
}

func NewEmbedder(ctx context.Context, name string, opts Options) (Embedder, error) {
	f, ok := embedders.Get(name)
	if !ok {
		return nil, fmt.Errorf("embedder '%s' (registered: %s): %w", name, strings.Join(Embedders(), ", "), ErrUnknownProvider)
	}
	return f(ctx, opts)
}

func NewGenerator(ctx context.Context, name string, opts Options) (Generator, error) {
	f, ok := generators.Get(name)
	if !ok {
		return nil, fmt.Errorf("generator '%s' (registered: %s): %w", name, strings.Join(Generators(), ", "), ErrUnknownProvider)
	}
	return f(ctx, opts)
}

// EmbedQuery embeds a search query and scales the result to unit length.
// Document embeddings are stored as returned by the backend.
func EmbedQuery(ctx context.Context, e Embedder, text string) ([]float32, error) {
	v, err := e.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return Normalize(v), nil
}

// Normalize returns a copy of v scaled to unit L2 norm. A zero vector is
// returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	out := make([]float32, len(v))
	copy(out, v)
	if sum == 0 {
		return out
	}

	norm := math.Sqrt(sum)
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}
