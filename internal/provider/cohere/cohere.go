// Package cohere registers Cohere embedding and chat backends under the
// name "cohere".
package cohere

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/provider"
)

const (
	Name = "cohere"

	DefaultEmbeddingModel  = "embed-english-light-v3.0"
	DefaultGenerationModel = "command-r-08-2024"
	embeddingDimensions    = 384
)

func init() {
	provider.RegisterEmbedder(Name, func(ctx context.Context, opts provider.Options) (provider.Embedder, error) {
		return New(opts), nil
	})
	provider.RegisterGenerator(Name, func(ctx context.Context, opts provider.Options) (provider.Generator, error) {
		return New(opts), nil
	})
}

type CohereProvider struct {
	client      *cohereclient.Client
	model       string
	temperature float32
}

// New creates a Cohere client. The API key falls back to COHERE_API_KEY.
func New(opts provider.Options) *CohereProvider {
	key := opts.APIKey
	if key == "" {
		key = os.Getenv("COHERE_API_KEY")
	}

	httpClient := &http.Client{
		Timeout: 60 * time.Second,
	}

	var c *cohereclient.Client
	if opts.BaseURL != "" {
		c = cohereclient.NewClient(
			cohereclient.WithToken(key),
			cohereclient.WithHTTPClient(httpClient),
			cohereclient.WithBaseURL(opts.BaseURL),
		)
	} else {
		c = cohereclient.NewClient(
			cohereclient.WithToken(key),
			cohereclient.WithHTTPClient(httpClient),
		)
	}

	return &CohereProvider{
		client:      c,
		model:       opts.Model,
		temperature: opts.Temperature,
	}
}

func (p *CohereProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	model := p.model
	if model == "" || strings.HasPrefix(model, "command") {
		model = DefaultEmbeddingModel
	}

	resp, err := p.client.V2.Embed(
		ctx,
		&cohere.V2EmbedRequest{
			Texts:          []string{text},
			Model:          model,
			InputType:      cohere.EmbedInputTypeSearchDocument,
			EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
		},
	)
	if err != nil {
		return nil, apperr.External("cohere embed", err)
	}
	if resp.Embeddings == nil || len(resp.Embeddings.Float) == 0 {
		return nil, apperr.External("cohere embed", provider.ErrEmptyEmbedding)
	}

	f32 := make([]float32, 0, len(resp.Embeddings.Float[0]))
	for _, f := range resp.Embeddings.Float[0] {
		f32 = append(f32, float32(f))
	}

	return f32, nil
}

// Dimensions reports the size of the light v3 models.
func (p *CohereProvider) Dimensions() uint {
	return embeddingDimensions
}

func (p *CohereProvider) Generate(ctx context.Context, prompt string) (string, error) {
	model := p.model
	if model == "" || strings.HasPrefix(model, "embed") {
		model = DefaultGenerationModel
	}

	req := &cohere.V2ChatStreamRequest{
		Model: model,
	}
	if p.temperature > 0 {
		temp := float64(p.temperature)
		req.Temperature = &temp
	}
	req.Messages = append(req.Messages, &cohere.ChatMessageV2{
		Role: "user",
		User: &cohere.UserMessage{Content: &cohere.UserMessageContent{
			String: prompt,
		}},
	})

	stream, err := p.client.V2.ChatStream(ctx, req)
	if err != nil {
		return "", apperr.External("cohere generate", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", apperr.External("cohere generate", err)
		}

		if resp.ContentDelta == nil {
			continue
		}
		if text := resp.ContentDelta.Delta.Message.Content.Text; text != nil {
			sb.WriteString(*text)
		}
	}

	return sb.String(), nil
}
