// Package gemini registers Google Gemini embedding and generation
// backends under the name "gemini".
package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/provider"
)

const (
	Name = "gemini"

	DefaultEmbeddingModel  = "text-embedding-004"
	DefaultGenerationModel = "gemini-1.5-flash"
)

func init() {
	provider.RegisterEmbedder(Name, func(ctx context.Context, opts provider.Options) (provider.Embedder, error) {
		return New(ctx, opts)
	})
	provider.RegisterGenerator(Name, func(ctx context.Context, opts provider.Options) (provider.Generator, error) {
		return New(ctx, opts)
	})
}

type GeminiProvider struct {
	client      *genai.Client
	model       string
	vectorDims  *int32
	temperature *float32
}

// New creates a Gemini client. The API key falls back to GEMINI_API_KEY.
// The same value serves as embedder and generator, opts.Model is used
// for whichever role it is registered under.
func New(ctx context.Context, opts provider.Options) (*GeminiProvider, error) {
	key := opts.APIKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}

	cfg := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = opts.BaseURL
	}

	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	p := &GeminiProvider{
		client: c,
		model:  opts.Model,
	}
	if opts.Dimensions > 0 {
		dims := int32(opts.Dimensions)
		p.vectorDims = &dims
	}
	if opts.Temperature > 0 {
		temp := opts.Temperature
		p.temperature = &temp
	}
	return p, nil
}

func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	model := p.model
	if model == "" || strings.HasPrefix(model, "gemini-") {
		model = DefaultEmbeddingModel
	}

	config := &genai.EmbedContentConfig{
		OutputDimensionality: p.vectorDims,
	}

	res, err := p.client.Models.EmbedContent(ctx, model, genai.Text(text), config)
	if err != nil {
		return nil, apperr.External("gemini embed", err)
	}
	if len(res.Embeddings) == 0 {
		return nil, apperr.External("gemini embed", provider.ErrEmptyEmbedding)
	}

	return res.Embeddings[0].Values, nil
}

func (p *GeminiProvider) Dimensions() uint {
	if p.vectorDims == nil {
		return 0
	}
	return uint(*p.vectorDims)
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	model := p.model
	if model == "" {
		model = DefaultGenerationModel
	}

	config := &genai.GenerateContentConfig{
		Temperature: p.temperature,
	}

	res, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", apperr.External("gemini generate", err)
	}

	return res.Text(), nil
}
