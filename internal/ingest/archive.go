// Package ingest reads uploaded archives and turns the PDF documents
// inside them into plain text.
package ingest

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/alan-mat/docqa/internal/apperr"
)

// DefaultMaxEntrySize caps the decompressed size of a single PDF entry.
const DefaultMaxEntrySize int64 = 64 << 20

var (
	ErrInvalidArchive = errors.New("invalid zip archive")
	ErrEntryTooLarge  = errors.New("zip entry too large")
)

// ReadZip returns the content of every PDF entry in a ZIP archive, keyed
// by entry name, with entries limited to DefaultMaxEntrySize bytes.
func ReadZip(data []byte) (map[string][]byte, error) {
	return ReadZipLimit(data, DefaultMaxEntrySize)
}

// ReadZipLimit is ReadZip with an explicit per-entry limit. Directories and
// entries not ending in ".pdf" are skipped without being decompressed. An
// entry larger than maxEntrySize bytes fails the whole archive.
func ReadZipLimit(data []byte, maxEntrySize int64) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.Input("read zip", fmt.Errorf("%w: %w", ErrInvalidArchive, err))
	}

	files := make(map[string][]byte)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isPDF(f.Name) {
			continue
		}

		content, err := readEntry(f, maxEntrySize)
		if err != nil {
			return nil, apperr.Input("read zip", fmt.Errorf("%w: entry '%s': %w", ErrInvalidArchive, f.Name, err))
		}
		files[f.Name] = content
	}

	return files, nil
}

func readEntry(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w: %d bytes", ErrEntryTooLarge, f.UncompressedSize64)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// header sizes are not trusted
	content, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("%w: over %d bytes", ErrEntryTooLarge, limit)
	}
	return content, nil
}

func isPDF(name string) bool {
	return strings.HasSuffix(name, ".pdf")
}

// PDFNames returns the names of entries ending in ".pdf", sorted.
// The match is case-sensitive.
func PDFNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		if isPDF(name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
