// Package jina registers the Jina AI embeddings API under the name "jina".
package jina

import (
	"context"
	"os"

	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/http"
	"github.com/alan-mat/docqa/internal/provider"
)

const (
	Name = "jina"

	Endpoint              = "https://api.jina.ai"
	DefaultEmbeddingModel = "jina-embeddings-v3"
)

func init() {
	provider.RegisterEmbedder(Name, func(ctx context.Context, opts provider.Options) (provider.Embedder, error) {
		return New(opts), nil
	})
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Task       string   `json:"task,omitempty"`
	Dimensions uint     `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Model     string `json:"model"`
	UsageInfo struct {
		TotalTokens  int `json:"total_tokens"`
		PromptTokens int `json:"prompt_tokens"`
	} `json:"usage"`
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type JinaAIProvider struct {
	client     *http.Client
	model      string
	vectorDims uint
}

// New creates a Jina client. The API key falls back to JINA_API_KEY.
func New(opts provider.Options) *JinaAIProvider {
	key := opts.APIKey
	if key == "" {
		key = os.Getenv("JINA_API_KEY")
	}
	endpoint := opts.BaseURL
	if endpoint == "" {
		endpoint = Endpoint
	}
	model := opts.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	c := http.NewClient(
		endpoint,
		http.WithMaxRetries(3),
		http.WithApiKey(key),
	)
	return &JinaAIProvider{
		client:     c,
		model:      model,
		vectorDims: opts.Dimensions,
	}
}

func (p *JinaAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := embeddingRequest{
		Input:      []string{text},
		Model:      p.model,
		Task:       "retrieval.passage",
		Dimensions: p.vectorDims,
	}

	var resp embeddingResponse
	if err := p.client.Request(ctx, http.MethodPost, "/v1/embeddings", req, &resp); err != nil {
		return nil, apperr.External("jina embed", err)
	}
	if len(resp.Data) == 0 {
		return nil, apperr.External("jina embed", provider.ErrEmptyEmbedding)
	}

	return resp.Data[0].Embedding, nil
}

func (p *JinaAIProvider) Dimensions() uint {
	return p.vectorDims
}
