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

// Package ollama registers a local Ollama server as embedding and
// generation backend under the name "ollama".
package ollama

import (
	"context"

	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/http"
	"github.com/alan-mat/docqa/internal/provider"
)

const (
	Name = "ollama"

	Endpoint               = "http://localhost:11434"
	DefaultEmbeddingModel  = "all-minilm"
	DefaultGenerationModel = "gemma3:4b"
)

func init() {
	provider.RegisterEmbedder(Name, func(ctx context.Context, opts provider.Options) (provider.Embedder, error) {
		return New(opts, DefaultEmbeddingModel), nil
	})
	provider.RegisterGenerator(Name, func(ctx context.Context, opts provider.Options) (provider.Generator, error) {
		return New(opts, DefaultGenerationModel), nil
	})
}

type OllamaProvider struct {
	client      *http.Client
	model       string
	vectorDims  uint
	temperature float32
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

func New(opts provider.Options, defaultModel string) *OllamaProvider {
	endpoint := opts.BaseURL
	if endpoint == "" {
		endpoint = Endpoint
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	c := http.NewClient(
		endpoint,
		http.WithMaxRetries(3),
	)
	return &OllamaProvider{
		client:      c,
		model:       model,
		vectorDims:  opts.Dimensions,
		temperature: opts.Temperature,
	}
}

func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := embedRequest{
		Model: p.model,
		Input: []string{text},
	}

	var resp embedResponse
	if err := p.client.Request(ctx, http.MethodPost, "/api/embed", req, &resp); err != nil {
		return nil, apperr.External("ollama embed", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, apperr.External("ollama embed", provider.ErrEmptyEmbedding)
	}

	return resp.Embeddings[0], nil
}

func (p *OllamaProvider) Dimensions() uint {
	return p.vectorDims
}

func (p *OllamaProvider) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{
		Model:  p.model,
		Prompt: prompt,
	}
	if p.temperature > 0 {
		req.Options = map[string]any{
			"temperature": p.temperature,
		}
	}

	var resp generateResponse
	if err := p.client.Request(ctx, http.MethodPost, "/api/generate", req, &resp); err != nil {
		return "", apperr.External("ollama generate", err)
	}

	return resp.Response, nil
}
