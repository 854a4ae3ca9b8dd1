package tasks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/alan-mat/docqa/internal/apperr"
	"github.com/alan-mat/docqa/internal/indexing"
	"github.com/alan-mat/docqa/internal/tasks"
)

type fakeIndexer struct {
	jobID   string
	archive []byte
	err     error
}

func (f *fakeIndexer) IndexArchive(ctx context.Context, jobID string, archive []byte) (*indexing.BatchResult, error) {
	f.jobID = jobID
	f.archive = archive
	if f.err != nil {
		return nil, f.err
	}
	return &indexing.BatchResult{JobID: jobID, Message: indexing.MessageIndexed}, nil
}

type temporaryErr struct{}

func (temporaryErr) Error() string   { return "connection reset" }
func (temporaryErr) Temporary() bool { return true }

func TestNewIndexArchiveTask(t *testing.T) {
	task, err := tasks.NewIndexArchiveTask("job-1", []byte("PK"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != tasks.TypeIndexArchive {
		t.Errorf("got type '%s', expected '%s'", task.Type(), tasks.TypeIndexArchive)
	}

	if _, err := tasks.NewIndexArchiveTask("job-2", nil); !errors.Is(err, tasks.ErrEmptyArchive) {
		t.Errorf("expected ErrEmptyArchive, got %v", err)
	}
}

func TestProcessTask(t *testing.T) {
	idx := &fakeIndexer{}
	h := tasks.NewIndexArchiveHandler(idx)

	task, err := tasks.NewIndexArchiveTask("job-1", []byte("archive bytes"))
	if err != nil {
		t.Fatal(err)
	}

	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.jobID != "job-1" {
		t.Errorf("got job id '%s', expected 'job-1'", idx.jobID)
	}
	if string(idx.archive) != "archive bytes" {
		t.Errorf("archive not passed through, got '%s'", idx.archive)
	}
}

func TestProcessTaskErrors(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		skipRetry bool
	}{
		{"input", apperr.Input("read zip", errors.New("zip: not a valid zip file")), true},
		{"internal", errors.New("boom"), true},
		{"external permanent", apperr.External("ensure collection", errors.New("unauthorized")), true},
		{"external temporary", apperr.External("ensure collection", temporaryErr{}), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := tasks.NewIndexArchiveHandler(&fakeIndexer{err: c.err})
			task, err := tasks.NewIndexArchiveTask("job-1", []byte("x"))
			if err != nil {
				t.Fatal(err)
			}

			err = h.ProcessTask(context.Background(), task)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := errors.Is(err, asynq.SkipRetry); got != c.skipRetry {
				t.Errorf("skip retry = %v, expected %v (err: %v)", got, c.skipRetry, err)
			}
		})
	}
}

func TestProcessTaskInvalidPayload(t *testing.T) {
	idx := &fakeIndexer{}
	h := tasks.NewIndexArchiveHandler(idx)

	for _, payload := range []string{"not json", `{"job_id":"","archive":"UEs="}`, `{"job_id":"job-1"}`} {
		err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeIndexArchive, []byte(payload)))
		if !errors.Is(err, asynq.SkipRetry) {
			t.Errorf("payload %q: expected SkipRetry, got %v", payload, err)
		}
	}
	if idx.jobID != "" {
		t.Errorf("indexer called for invalid payload")
	}
}
