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

// Package chunk splits extracted document text into sentence-aligned
// chunks and derives the record ids those chunks are stored under.
package chunk

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultTargetSize is the soft upper bound, in characters, of a chunk.
const DefaultTargetSize = 500

// Chunk is a contiguous span of a source document.
type Chunk struct {
	FileName string
	Index    int
	Text     string
}

// ID returns the vector record id of the chunk.
func (c Chunk) ID() string {
	return RecordID(c.FileName, c.Index)
}

// Document splits text into chunks tagged with their source file name
// and position. It returns nil when text yields no chunks.
func Document(fileName, text string, targetSize int) []Chunk {
	parts := Split(text, targetSize)
	if len(parts) == 0 {
		return nil
	}

	chunks := make([]Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = Chunk{FileName: fileName, Index: i, Text: p}
	}
	return chunks
}

// Split breaks text into sentences and greedily packs them into chunks
// whose sentence lengths sum to at most targetSize characters. The spaces
// joining sentences are not counted. A sentence longer than targetSize
// becomes a chunk of its own and is never cut. Blank chunks are dropped,
// so blank input yields an empty slice.
func Split(text string, targetSize int) []string {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	chunks := []string{}
	var (
		current    []string
		currentLen int
	)
	flush := func() {
		if s := strings.TrimSpace(strings.Join(current, " ")); s != "" {
			chunks = append(chunks, s)
		}
		current = current[:0]
		currentLen = 0
	}

	for _, sentence := range sentences(text) {
		n := utf8.RuneCountInString(sentence)
		next := currentLen + n
		if next > targetSize && len(current) > 0 {
			flush()
			next = n
		}
		current = append(current, sentence)
		currentLen = next
	}
	flush()

	return chunks
}

// sentences splits text after '.', '!' or '?' when followed by
// whitespace. The whitespace run at a boundary is consumed.
func sentences(text string) []string {
	var (
		out   []string
		start int
		prev  rune
	)
	for i, r := range text {
		if unicode.IsSpace(r) && isTerminal(prev) {
			if i > start {
				out = append(out, text[start:i])
			}
			start = -1
		} else if start < 0 {
			if unicode.IsSpace(r) {
				prev = r
				continue
			}
			start = i
		}
		prev = r
	}
	if start >= 0 && start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// SanitizeID replaces every rune outside [A-Za-z0-9] with '_'.
func SanitizeID(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < utf8.RuneSelf && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

// RecordID is the id a chunk of fileName at position index is stored under.
func RecordID(fileName string, index int) string {
	return SanitizeID(fileName + "_" + strconv.Itoa(index))
}
