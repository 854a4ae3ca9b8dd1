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

package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/http"
)

const (
	MistralEndpoint = "https://api.mistral.ai"
	MistralOCRModel = "mistral-ocr-latest"
)

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
}

type ocrPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type ocrResponse struct {
	Pages     []ocrPage `json:"pages"`
	Model     string    `json:"model"`
	UsageInfo struct {
		PagesProcessed int `json:"pages_processed"`
		DocSizeBytes   int `json:"doc_size_bytes"`
	} `json:"usage_info"`
}

// MistralExtractor sends documents to the Mistral OCR API, which also
// reads scanned pages that carry no text layer.
type MistralExtractor struct {
	client *http.Client
}

// NewMistralExtractor creates an OCR client. The API key falls back to
// MISTRAL_API_KEY.
func NewMistralExtractor(endpoint, apiKey string) *MistralExtractor {
	if endpoint == "" {
		endpoint = MistralEndpoint
	}
	if apiKey == "" {
		apiKey = os.Getenv("MISTRAL_API_KEY")
	}

	c := http.NewClient(
		endpoint,
		http.WithMaxRetries(3),
		http.WithApiKey(apiKey),
	)
	return &MistralExtractor{client: c}
}

func (e *MistralExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	req := ocrRequest{
		Model: MistralOCRModel,
		Document: ocrDocument{
			Type:        "document_url",
			DocumentURL: fmt.Sprintf("data:application/pdf;base64,%s", base64.StdEncoding.EncodeToString(data)),
		},
	}

	var resp ocrResponse
	if err := e.client.Request(ctx, http.MethodPost, "/v1/ocr", req, &resp); err != nil {
		return "", apperr.External("mistral ocr", err)
	}

	pages := make([]string, 0, len(resp.Pages))
	for _, page := range resp.Pages {
		if text := strings.TrimSpace(page.Markdown); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, " "), nil
}
