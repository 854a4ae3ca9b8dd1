package ingest_test

import (
	"testing"

	"github.com/alan-mat/docqa/internal/ingest"
)

func TestContentText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "single show",
			content: "BT /F1 12 Tf 31.19 794.57 Td (Hello World.) Tj ET",
			want:    "Hello World.\n",
		},
		{
			name:    "escapes",
			content: `BT (Hello \(nested\) \\ back) Tj ET`,
			want:    `Hello (nested) \ back` + "\n",
		},
		{
			name:    "balanced parentheses",
			content: "BT (a (b) c) Tj ET",
			want:    "a (b) c\n",
		},
		{
			name:    "octal escape",
			content: `BT (caf\351) Tj ET`,
			want:    "café\n",
		},
		{
			name:    "kerned array",
			content: "BT [(Hel) 20 (lo) -300 (there)] TJ ET",
			want:    "Hello there\n",
		},
		{
			name:    "hex string",
			content: "BT <48656C6C6F> Tj ET",
			want:    "Hello\n",
		},
		{
			name:    "lines",
			content: "BT 0 0 Td (One.) Tj 0 -14 Td (Two.) Tj T* (Three.) ' ET",
			want:    "One.\nTwo.\nThree.\n",
		},
		{
			name:    "no text",
			content: "q 1 0 0 1 0 0 cm 0 0 100 100 re f Q",
			want:    "",
		},
		{
			name:    "comment skipped",
			content: "% (hidden) Tj\nBT (shown) Tj ET",
			want:    "shown\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ingest.ContentText([]byte(tt.content))
			if got != tt.want {
				t.Errorf("got %q, expected %q", got, tt.want)
			}
		})
	}
}
