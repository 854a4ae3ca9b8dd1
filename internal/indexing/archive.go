package indexing

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/ingest"
)

const (
	MessageNoPDFs   = "No PDF files found in the uploaded ZIP."
	MessageNoText   = "No text could be extracted from the PDFs in the uploaded ZIP."
	MessageIndexed  = "PDF files processed, converted to text, and stored in the vector index successfully!"
	MessageAccepted = "Upload accepted for processing."
)

type BatchResult struct {
	JobID     string   `json:"job_id"`
	Message   string   `json:"message"`
	Documents []Report `json:"documents"`
}

// IndexArchive extracts every PDF of a ZIP archive and indexes the text
// of each. Progress of jobID advances once per PDF, in name order, and
// always ends at 100 whether the job completes or fails.
func (p *Pipeline) IndexArchive(ctx context.Context, jobID string, archive []byte) (*BatchResult, error) {
	result := &BatchResult{
		JobID:     jobID,
		Documents: []Report{},
	}

	files, err := ingest.ReadZip(archive)
	if err != nil {
		p.failEarly(ctx, jobID, err)
		return nil, err
	}

	names := ingest.PDFNames(files)
	if len(names) == 0 {
		result.Message = MessageNoPDFs
		p.startJob(ctx, jobID, 0)
		p.finishJob(ctx, jobID, result.Message)
		return result, nil
	}

	if err := p.EnsureCollection(ctx); err != nil {
		err = apperr.External("ensure collection", err)
		p.failEarly(ctx, jobID, err)
		return nil, err
	}

	p.startJob(ctx, jobID, len(names))
	slog.Info("indexing archive", "job", jobID, "documents", len(names))

	var withText int
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			p.failJob(ctx, jobID, err)
			return nil, err
		}

		report := p.indexFile(ctx, name, files[name])
		if !report.Skipped {
			withText++
		}
		result.Documents = append(result.Documents, report)

		if err := p.tracker.Advance(ctx, jobID); err != nil {
			slog.Warn("failed to advance job progress", "job", jobID, "err", err)
		}
	}

	if withText == 0 {
		result.Message = MessageNoText
	} else {
		result.Message = MessageIndexed
	}
	p.finishJob(ctx, jobID, result.Message)

	slog.Info("indexed archive", "job", jobID, "documents", len(names), "with_text", withText)
	return result, nil
}

func (p *Pipeline) indexFile(ctx context.Context, name string, data []byte) Report {
	text, err := p.extractor.ExtractText(ctx, data)
	if err != nil {
		slog.Error("failed to extract text, skipping", "file", name, "err", err)
		p.metrics.DocumentSkipped()
		return Report{FileName: name, Skipped: true, Error: err.Error()}
	}
	if strings.TrimSpace(text) == "" {
		slog.Warn("no text extracted, skipping", "file", name)
		p.metrics.DocumentSkipped()
		return Report{FileName: name, Skipped: true}
	}

	return p.IndexDocument(ctx, name, text)
}

func (p *Pipeline) startJob(ctx context.Context, jobID string, total int) {
	if err := p.tracker.Start(ctx, jobID, total); err != nil {
		slog.Warn("failed to start job progress", "job", jobID, "err", err)
	}
}

func (p *Pipeline) finishJob(ctx context.Context, jobID, message string) {
	if err := p.tracker.Finish(context.WithoutCancel(ctx), jobID, message); err != nil {
		slog.Warn("failed to finish job progress", "job", jobID, "err", err)
	}
}

func (p *Pipeline) failJob(ctx context.Context, jobID string, cause error) {
	if err := p.tracker.Fail(context.WithoutCancel(ctx), jobID, cause.Error()); err != nil {
		slog.Warn("failed to record job failure", "job", jobID, "err", err)
	}
}

// failEarly records a failure for a job that was never started.
func (p *Pipeline) failEarly(ctx context.Context, jobID string, cause error) {
	p.startJob(context.WithoutCancel(ctx), jobID, 0)
	p.failJob(ctx, jobID, cause)
}
