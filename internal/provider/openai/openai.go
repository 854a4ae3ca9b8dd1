// Package openai registers embedding and chat completion backends for any
// OpenAI-compatible API under the name "openai".
package openai

import (
	"context"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/provider"
)

const (
	Name = "openai"

	DefaultEmbeddingModel  = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultGenerationModel = openai.GPT4Dot1Nano
)

func init() {
	provider.RegisterEmbedder(Name, func(ctx context.Context, opts provider.Options) (provider.Embedder, error) {
		return New(opts), nil
	})
	provider.RegisterGenerator(Name, func(ctx context.Context, opts provider.Options) (provider.Generator, error) {
		return New(opts), nil
	})
}

type OpenAIProvider struct {
	client      *openai.Client
	model       string
	vectorDims  int
	temperature float32
}

// New creates a client for the OpenAI API, or for an OpenAI-compatible
// server when opts.BaseURL is set. The API key falls back to OPENAI_API_KEY.
func New(opts provider.Options) *OpenAIProvider {
	key := opts.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}

	cfg := openai.DefaultConfig(key)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		vectorDims:  int(opts.Dimensions),
		temperature: opts.Temperature,
	}
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	model := p.model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	req := &openai.EmbeddingRequestStrings{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	// only the text-embedding-3 family accepts a dimensions parameter
	if model != DefaultEmbeddingModel {
		req.Dimensions = p.vectorDims
	}

	res, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, apperr.External("openai embed", err)
	}
	if len(res.Data) == 0 {
		return nil, apperr.External("openai embed", provider.ErrEmptyEmbedding)
	}

	return res.Data[0].Embedding, nil
}

func (p *OpenAIProvider) Dimensions() uint {
	return uint(p.vectorDims)
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	model := p.model
	if model == "" {
		model = DefaultGenerationModel
	}

	res, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: p.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", apperr.External("openai generate", err)
	}
	if len(res.Choices) == 0 {
		return "", nil
	}

	return res.Choices[0].Message.Content, nil
}
