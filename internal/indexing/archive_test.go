package indexing_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/indexing"
	"github.com/alan-mat/docqa/internal/ingest"
	"github.com/alan-mat/docqa/internal/ingest/ingesttest"
	"github.com/alan-mat/docqa/internal/progress"
)

// textExtractor treats document bytes as their text. Documents starting
// with "corrupt" fail to extract.
type textExtractor struct{}

func (textExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	if strings.HasPrefix(string(data), "corrupt") {
		return "", errors.New("malformed pdf")
	}
	return string(data), nil
}

// recordingTracker remembers the job percentage after every advance.
type recordingTracker struct {
	*progress.MemoryTracker
	percents []int
}

func (r *recordingTracker) Advance(ctx context.Context, jobID string) error {
	if err := r.MemoryTracker.Advance(ctx, jobID); err != nil {
		return err
	}
	job, err := r.Get(ctx, jobID)
	if err != nil {
		return err
	}
	r.percents = append(r.percents, job.Percent())
	return nil
}

func TestIndexArchive(t *testing.T) {
	tracker := &recordingTracker{MemoryTracker: progress.NewMemoryTracker()}
	p, store := newPipeline(t, &hashEmbedder{dims: testDims},
		indexing.WithExtractor(textExtractor{}),
		indexing.WithTracker(tracker),
	)

	archive := ingesttest.Zip(t,
		ingesttest.File{Name: "b.pdf", Data: []byte("Second document.")},
		ingesttest.File{Name: "notes.txt", Data: []byte("Not a PDF.")},
		ingesttest.File{Name: "a.pdf", Data: []byte(catDog)},
		ingesttest.File{Name: "c.pdf", Data: []byte("corrupt")},
	)

	res, err := p.IndexArchive(context.Background(), "job-1", archive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != indexing.MessageIndexed {
		t.Errorf("got message '%s'", res.Message)
	}
	if res.JobID != "job-1" {
		t.Errorf("got job id '%s'", res.JobID)
	}

	names := make([]string, 0, len(res.Documents))
	for _, d := range res.Documents {
		names = append(names, d.FileName)
	}
	if strings.Join(names, ",") != "a.pdf,b.pdf,c.pdf" {
		t.Errorf("got documents %v, expected a.pdf,b.pdf,c.pdf", names)
	}
	if !res.Documents[2].Skipped || res.Documents[2].Error == "" {
		t.Errorf("expected corrupt document to be skipped with error, got %+v", res.Documents[2])
	}

	if n := store.Len(testCollection); n != 3 {
		t.Errorf("got %d records, expected 3", n)
	}

	want := []int{33, 66, 100}
	if len(tracker.percents) != len(want) {
		t.Fatalf("got progress %v, expected %v", tracker.percents, want)
	}
	for i := range want {
		if tracker.percents[i] != want[i] {
			t.Errorf("got progress %v, expected %v", tracker.percents, want)
			break
		}
	}

	job, err := tracker.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("job not tracked: %v", err)
	}
	if job.Status != progress.StatusCompleted || job.Percent() != 100 {
		t.Errorf("unexpected final job %+v", job)
	}
}

func TestIndexArchiveOutcomes(t *testing.T) {
	cases := []struct {
		name    string
		files   []ingesttest.File
		message string
	}{
		{
			name:    "no pdf",
			files:   []ingesttest.File{{Name: "readme.txt", Data: []byte("hello")}},
			message: indexing.MessageNoPDFs,
		},
		{
			name:    "empty archive",
			files:   nil,
			message: indexing.MessageNoPDFs,
		},
		{
			name: "no text",
			files: []ingesttest.File{
				{Name: "scan.pdf", Data: []byte("   ")},
				{Name: "broken.pdf", Data: []byte("corrupt")},
			},
			message: indexing.MessageNoText,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tracker := progress.NewMemoryTracker()
			p, store := newPipeline(t, &hashEmbedder{dims: testDims},
				indexing.WithExtractor(textExtractor{}),
				indexing.WithTracker(tracker),
			)

			res, err := p.IndexArchive(context.Background(), "job", ingesttest.Zip(t, c.files...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Message != c.message {
				t.Errorf("got message '%s', expected '%s'", res.Message, c.message)
			}
			if n := store.Len(testCollection); n != 0 {
				t.Errorf("got %d records, expected 0", n)
			}

			job, _ := tracker.Get(context.Background(), "job")
			if job == nil || job.Percent() != 100 {
				t.Errorf("expected finished job, got %+v", job)
			}
		})
	}
}

func TestIndexArchiveInvalid(t *testing.T) {
	tracker := progress.NewMemoryTracker()
	p, _ := newPipeline(t, &hashEmbedder{dims: testDims}, indexing.WithTracker(tracker))

	_, err := p.IndexArchive(context.Background(), "job", []byte("not a zip"))
	if !errors.Is(err, ingest.ErrInvalidArchive) {
		t.Fatalf("expected ErrInvalidArchive, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindInput {
		t.Errorf("expected input error, got '%s'", apperr.KindOf(err))
	}

	job, err := tracker.Get(context.Background(), "job")
	if err != nil {
		t.Fatalf("job not tracked: %v", err)
	}
	if job.Status != progress.StatusFailed || job.Percent() != 100 {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestIndexArchivePDF(t *testing.T) {
	p, store := newPipeline(t, &hashEmbedder{dims: testDims}, indexing.WithTargetSize(500))

	archive := ingesttest.Zip(t,
		ingesttest.File{Name: "report.pdf", Data: ingesttest.PDF(t, catDog)},
		ingesttest.File{Name: "blank.pdf", Data: ingesttest.PDF(t, "")},
	)

	res, err := p.IndexArchive(context.Background(), "job", archive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != indexing.MessageIndexed {
		t.Errorf("got message '%s'", res.Message)
	}

	records := queryAll(t, store)
	r, ok := records["report_pdf_0"]
	if !ok {
		t.Fatalf("record 'report_pdf_0' not found, got %v", records)
	}
	if !strings.Contains(r.Metadata.Text, "The dog barked loudly") {
		t.Errorf("unexpected chunk text '%s'", r.Metadata.Text)
	}
	if !res.Documents[0].Skipped || res.Documents[0].FileName != "blank.pdf" {
		t.Errorf("expected blank.pdf to be skipped, got %+v", res.Documents[0])
	}
}
