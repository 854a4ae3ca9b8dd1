package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	ExtractorPDFCPU  = "pdfcpu"
	ExtractorMistral = "mistral"
)

// Extractor turns the bytes of a single document into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

type ExtractorConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
}

func NewExtractor(cfg ExtractorConfig) (Extractor, error) {
	switch cfg.Provider {
	case "", ExtractorPDFCPU:
		return NewPDFExtractor(), nil
	case ExtractorMistral:
		return NewMistralExtractor(cfg.BaseURL, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown extractor '%s'", cfg.Provider)
	}
}

// PDFExtractor reads the text-showing operators of every page content
// stream. Scanned documents without a text layer yield no text.
type PDFExtractor struct {
	conf *model.Configuration
}

func NewPDFExtractor() *PDFExtractor {
	conf := model.NewDefaultConfiguration()
	conf.Cmd = model.EXTRACTCONTENT
	return &PDFExtractor{conf: conf}
}

// ExtractText returns the text of all pages joined by a single space.
func (e *PDFExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), e.conf)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return "", fmt.Errorf("failed to count pages: %w", err)
	}

	pages := make([]string, 0, pdfCtx.PageCount)
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil {
			return "", fmt.Errorf("failed to extract content of page %d: %w", pageNr, err)
		}
		if r == nil {
			continue
		}

		content, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read content of page %d: %w", pageNr, err)
		}
		if text := strings.TrimSpace(ContentText(content)); text != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, " "), nil
}
