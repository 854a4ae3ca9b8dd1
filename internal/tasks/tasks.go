// Package tasks defines the asynq tasks used to index uploaded archives in
// a worker process.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/indexing"
)

const (
	TypeIndexArchive = "docqa:index_archive"

	DefaultMaxRetry = 3
	DefaultTimeout  = 30 * time.Minute
)

var (
	ErrEmptyArchive = errors.New("task payload has no archive")
	ErrDuplicateJob = errors.New("job id already in use")
)

type indexArchivePayload struct {
	JobID   string `json:"job_id"`
	Archive []byte `json:"archive"`
}

// NewIndexArchiveTask builds a task indexing archive under jobID. The job
// id doubles as the asynq task id so a job is enqueued at most once.
func NewIndexArchiveTask(jobID string, archive []byte) (*asynq.Task, error) {
	if len(archive) == 0 {
		return nil, ErrEmptyArchive
	}

	payload, err := json.Marshal(indexArchivePayload{
		JobID:   jobID,
		Archive: archive,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeIndexArchive, payload,
		asynq.TaskID(jobID),
		asynq.MaxRetry(DefaultMaxRetry),
		asynq.Timeout(DefaultTimeout),
	), nil
}

// Client enqueues archive indexing tasks.
type Client struct {
	client *asynq.Client
}

func NewClient(client *asynq.Client) *Client {
	return &Client{client: client}
}

func (c *Client) EnqueueIndexArchive(ctx context.Context, jobID string, archive []byte) error {
	t, err := NewIndexArchiveTask(jobID, archive)
	if err != nil {
		return apperr.Internal("create task", err)
	}

	info, err := c.client.EnqueueContext(ctx, t)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return apperr.Input("enqueue task", fmt.Errorf("%w: '%s'", ErrDuplicateJob, jobID))
	}
	if err != nil {
		return apperr.External("enqueue task", err)
	}
	slog.Info("enqueued task successfully", "id", info.ID, "queue", info.Queue)
	return nil
}

// ArchiveIndexer indexes the PDFs of a ZIP archive.
type ArchiveIndexer interface {
	IndexArchive(ctx context.Context, jobID string, archive []byte) (*indexing.BatchResult, error)
}

type IndexArchiveHandler struct {
	indexer ArchiveIndexer
}

func NewIndexArchiveHandler(indexer ArchiveIndexer) *IndexArchiveHandler {
	return &IndexArchiveHandler{
		indexer: indexer,
	}
}

// ProcessTask runs the archive indexing job. Only failures that may pass on
// a later attempt are returned for retry.
func (h *IndexArchiveHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p indexArchivePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to decode payload: %v (%w)", err, asynq.SkipRetry)
	}
	if p.JobID == "" || len(p.Archive) == 0 {
		return fmt.Errorf("invalid payload for job '%s': %w", p.JobID, asynq.SkipRetry)
	}

	slog.Info("received index archive task", "job", p.JobID, "bytes", len(p.Archive))

	res, err := h.indexer.IndexArchive(ctx, p.JobID, p.Archive)
	if err != nil {
		slog.Error("index archive task failed", "job", p.JobID, "err", err)
		if apperr.IsRetryable(err) {
			return err
		}
		return fmt.Errorf("%v (%w)", err, asynq.SkipRetry)
	}

	if rw := t.ResultWriter(); rw != nil {
		out, err := json.Marshal(res)
		if err == nil {
			_, err = rw.Write(out)
		}
		if err != nil {
			slog.Warn("failed to write task result", "job", p.JobID, "err", err)
		}
	}

	slog.Info("index archive task finished", "job", p.JobID, "message", res.Message)
	return nil
}
