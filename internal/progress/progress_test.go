package progress_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alan-mat/docqa/internal/progress"
)

func TestJobPercent(t *testing.T) {
	cases := []struct {
		job      progress.Job
		expected int
	}{
		{progress.Job{Status: progress.StatusRunning, Processed: 0, Total: 4}, 0},
		{progress.Job{Status: progress.StatusRunning, Processed: 1, Total: 3}, 33},
		{progress.Job{Status: progress.StatusRunning, Processed: 2, Total: 3}, 66},
		{progress.Job{Status: progress.StatusRunning, Processed: 3, Total: 3}, 100},
		{progress.Job{Status: progress.StatusRunning, Processed: 0, Total: 0}, 100},
		{progress.Job{Status: progress.StatusFailed, Processed: 1, Total: 5}, 100},
		{progress.Job{Status: progress.StatusCompleted, Processed: 5, Total: 5}, 100},
		{progress.Job{Status: progress.StatusQueued}, 0},
	}

	for _, c := range cases {
		if got := c.job.Percent(); got != c.expected {
			t.Errorf("%+v: got %d, expected %d", c.job, got, c.expected)
		}
	}
}

// exerciseTracker runs the same lifecycle against any Tracker.
func exerciseTracker(t *testing.T, tr progress.Tracker) {
	t.Helper()
	ctx := context.Background()

	if _, err := tr.Get(ctx, "missing"); !errors.Is(err, progress.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
	if err := tr.Advance(ctx, "missing"); !errors.Is(err, progress.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound on advance, got %v", err)
	}

	if err := tr.Enqueue(ctx, "job-1"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	queued, err := tr.Latest(ctx)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if queued.Status != progress.StatusQueued || queued.Percent() != 0 || queued.Done() {
		t.Errorf("unexpected queued job %+v", queued)
	}

	if err := tr.Start(ctx, "job-1", 4); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	var last int
	for i := range 4 {
		if err := tr.Advance(ctx, "job-1"); err != nil {
			t.Fatalf("advance %d failed: %v", i, err)
		}
		job, err := tr.Get(ctx, "job-1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if job.Percent() < last {
			t.Errorf("progress decreased from %d to %d", last, job.Percent())
		}
		last = job.Percent()
	}
	if last != 100 {
		t.Errorf("got %d after all documents, expected 100", last)
	}

	if err := tr.Finish(ctx, "job-1", "done"); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	job, _ := tr.Get(ctx, "job-1")
	if job.Status != progress.StatusCompleted || job.Message != "done" || job.CompletedAt.IsZero() {
		t.Errorf("unexpected finished job %+v", job)
	}

	if err := tr.Start(ctx, "job-2", 3); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	latest, err := tr.Latest(ctx)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest.ID != "job-2" || latest.Percent() != 0 {
		t.Errorf("unexpected latest job %+v", latest)
	}

	tr.Advance(ctx, "job-2")
	if err := tr.Fail(ctx, "job-2", "boom"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}
	job, _ = tr.Get(ctx, "job-2")
	if job.Status != progress.StatusFailed || job.Percent() != 100 || job.Processed != 1 {
		t.Errorf("unexpected failed job %+v", job)
	}
}

func TestMemoryTracker(t *testing.T) {
	tr := progress.NewMemoryTracker()
	if _, err := tr.Latest(context.Background()); !errors.Is(err, progress.ErrNoJobs) {
		t.Errorf("expected ErrNoJobs, got %v", err)
	}
	exerciseTracker(t, tr)
}

func TestMemoryTrackerAdvanceCapped(t *testing.T) {
	ctx := context.Background()
	tr := progress.NewMemoryTracker()
	tr.Start(ctx, "j", 1)
	tr.Advance(ctx, "j")
	tr.Advance(ctx, "j")

	job, _ := tr.Get(ctx, "j")
	if job.Processed != 1 {
		t.Errorf("got %d processed, expected 1", job.Processed)
	}
}
