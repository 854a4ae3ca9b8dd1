package progress

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type MemoryTracker struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	latest string
	now    func() time.Time
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

func (t *MemoryTracker) Enqueue(ctx context.Context, jobID string) error {
	return t.put(jobID, StatusQueued, 0)
}

func (t *MemoryTracker) Start(ctx context.Context, jobID string, total int) error {
	return t.put(jobID, StatusRunning, total)
}

func (t *MemoryTracker) put(jobID string, status Status, total int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expire()
	t.jobs[jobID] = &Job{
		ID:        jobID,
		Status:    status,
		Total:     total,
		StartedAt: t.now(),
	}
	t.latest = jobID
	return nil
}

func (t *MemoryTracker) Advance(ctx context.Context, jobID string) error {
	return t.update(jobID, func(j *Job) {
		if j.Processed < j.Total {
			j.Processed++
		}
	})
}

func (t *MemoryTracker) Finish(ctx context.Context, jobID string, message string) error {
	return t.update(jobID, func(j *Job) {
		j.Status = StatusCompleted
		j.Processed = j.Total
		j.Message = message
		j.CompletedAt = t.now()
	})
}

func (t *MemoryTracker) Fail(ctx context.Context, jobID string, message string) error {
	return t.update(jobID, func(j *Job) {
		j.Status = StatusFailed
		j.Message = message
		j.CompletedAt = t.now()
	})
}

func (t *MemoryTracker) Get(ctx context.Context, jobID string) (*Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	j, ok := t.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrJobNotFound, jobID)
	}
	job := *j
	return &job, nil
}

func (t *MemoryTracker) Latest(ctx context.Context) (*Job, error) {
	t.mu.RLock()
	latest := t.latest
	t.mu.RUnlock()

	if latest == "" {
		return nil, ErrNoJobs
	}
	return t.Get(ctx, latest)
}

func (t *MemoryTracker) update(jobID string, fn func(*Job)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrJobNotFound, jobID)
	}
	fn(j)
	return nil
}

// expire drops finished jobs older than JobExpiry. Callers hold the lock.
func (t *MemoryTracker) expire() {
	cutoff := t.now().Add(-JobExpiry)
	for id, j := range t.jobs {
		if j.Done() && j.CompletedAt.Before(cutoff) && id != t.latest {
			delete(t.jobs, id)
		}
	}
}
