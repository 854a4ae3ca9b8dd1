// Package ingesttest builds PDF and ZIP fixtures for tests.
package ingesttest

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
)

// PDF renders one page per element of pages. Lines within a page are
// separated by '\n'. An empty string yields a page without text.
func PDF(t testing.TB, pages ...string) []byte {
	t.Helper()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for _, page := range pages {
		pdf.AddPage()
		if page == "" {
			continue
		}
		for _, line := range strings.Split(page, "\n") {
			pdf.Cell(0, 8, line)
			pdf.Ln(8)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("failed to render pdf: %v", err)
	}
	return buf.Bytes()
}

// Zip writes files into an archive in the given order.
func Zip(t testing.TB, files ...File) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			t.Fatalf("failed to create zip entry: %v", err)
		}
		if _, err := w.Write(f.Data); err != nil {
			t.Fatalf("failed to write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

type File struct {
	Name string
	Data []byte
}
