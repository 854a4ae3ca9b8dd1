package indexing_test

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/alan-mat/docqa/internal/indexing"
	"github.com/alan-mat/docqa/internal/vector"
)

const (
	testCollection = "test-vectors"
	testDims       = 8
	catDog         = "A cat sat. It was happy. The dog barked loudly today in the park."
)

// hashEmbedder derives a deterministic vector from the text. Texts
// containing failOn produce an error, texts containing shortOn produce a
// vector of the wrong length.
type hashEmbedder struct {
	dims    int
	failOn  string
	shortOn string
	calls   int
}

func (e *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding quota exceeded")
	}
	dims := e.dims
	if e.shortOn != "" && strings.Contains(text, e.shortOn) {
		dims = e.dims / 2
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dims)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(seed>>40)/float32(1<<24) + 0.01
	}
	return vec, nil
}

func (e *hashEmbedder) Dimensions() uint {
	return uint(e.dims)
}

func newPipeline(t *testing.T, e *hashEmbedder, opts ...indexing.Option) (*indexing.Pipeline, *vector.MemoryStore) {
	t.Helper()
	store := vector.NewMemoryStore()
	opts = append([]indexing.Option{
		indexing.WithCollection(testCollection),
		indexing.WithDimensions(testDims),
		indexing.WithTargetSize(25),
	}, opts...)
	p := indexing.NewPipeline(e, store, opts...)
	if err := p.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("failed to create collection: %v", err)
	}
	return p, store
}

func queryAll(t *testing.T, store *vector.MemoryStore) map[string]*vector.Match {
	t.Helper()
	q := make([]float32, testDims)
	q[0] = 1
	matches, err := store.Query(context.Background(), vector.NewQueryParams(testCollection, q, vector.WithLimit(100)))
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	byID := make(map[string]*vector.Match, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
	}
	return byID
}

func TestIndexDocument(t *testing.T) {
	p, store := newPipeline(t, &hashEmbedder{dims: testDims})

	report := p.IndexDocument(context.Background(), "report.pdf", catDog)
	if report.Chunks != 2 || report.Upserted != 2 || report.Failed != 0 || report.Skipped {
		t.Fatalf("unexpected report %+v", report)
	}

	records := queryAll(t, store)
	want := map[string]string{
		"report_pdf_0": "A cat sat. It was happy.",
		"report_pdf_1": "The dog barked loudly today in the park.",
	}
	if len(records) != len(want) {
		t.Fatalf("got %d records, expected %d", len(records), len(want))
	}
	for id, text := range want {
		r, ok := records[id]
		if !ok {
			t.Errorf("record '%s' not found", id)
			continue
		}
		if r.Metadata.Text != text {
			t.Errorf("record '%s' has text '%s', expected '%s'", id, r.Metadata.Text, text)
		}
		if r.Metadata.FileName != "report.pdf" {
			t.Errorf("record '%s' has file name '%s'", id, r.Metadata.FileName)
		}
	}
	if records["report_pdf_1"].Metadata.ChunkIndex != 1 {
		t.Errorf("got chunk index %d, expected 1", records["report_pdf_1"].Metadata.ChunkIndex)
	}
}

func TestIndexDocumentBlank(t *testing.T) {
	e := &hashEmbedder{dims: testDims}
	p, store := newPipeline(t, e)

	for _, text := range []string{"", "   \n\t "} {
		report := p.IndexDocument(context.Background(), "blank.pdf", text)
		if !report.Skipped || report.Upserted != 0 {
			t.Errorf("expected skipped report, got %+v", report)
		}
	}
	if e.calls != 0 {
		t.Errorf("embedder called %d times for blank text", e.calls)
	}
	if n := store.Len(testCollection); n != 0 {
		t.Errorf("got %d records, expected 0", n)
	}
}

func TestIndexDocumentChunkFailures(t *testing.T) {
	cases := []struct {
		name     string
		embedder *hashEmbedder
	}{
		{"embed error", &hashEmbedder{dims: testDims, failOn: "cat"}},
		{"dimension mismatch", &hashEmbedder{dims: testDims, shortOn: "cat"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p, store := newPipeline(t, c.embedder)

			report := p.IndexDocument(context.Background(), "report.pdf", catDog)
			if report.Upserted != 1 || report.Failed != 1 {
				t.Errorf("unexpected report %+v", report)
			}

			records := queryAll(t, store)
			if _, ok := records["report_pdf_0"]; ok {
				t.Error("failed chunk was stored")
			}
			if _, ok := records["report_pdf_1"]; !ok {
				t.Error("chunk after failure was not stored")
			}
		})
	}
}

func TestIndexDocumentReindexOverwrites(t *testing.T) {
	p, store := newPipeline(t, &hashEmbedder{dims: testDims})

	p.IndexDocument(context.Background(), "report.pdf", catDog)
	p.IndexDocument(context.Background(), "report.pdf", "Totally new content.")

	records := queryAll(t, store)
	if len(records) != 2 {
		t.Fatalf("got %d records, expected 2", len(records))
	}
	if got := records["report_pdf_0"].Metadata.Text; got != "Totally new content." {
		t.Errorf("record not overwritten, got '%s'", got)
	}
}

func TestIndexDocumentNamespace(t *testing.T) {
	p, store := newPipeline(t, &hashEmbedder{dims: testDims}, indexing.WithNamespace("tenant"))
	p.IndexDocument(context.Background(), "report.pdf", catDog)

	q := make([]float32, testDims)
	q[0] = 1
	other, _ := store.Query(context.Background(), vector.NewQueryParams(testCollection, q, vector.WithNamespace("other")))
	if len(other) != 0 {
		t.Errorf("expected no records in other namespace, got %d", len(other))
	}
	own, _ := store.Query(context.Background(), vector.NewQueryParams(testCollection, q, vector.WithNamespace("tenant")))
	if len(own) != 2 {
		t.Errorf("got %d records in namespace, expected 2", len(own))
	}
}
