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

// Package progress tracks the advancement of archive indexing jobs so
// that clients can poll or stream it while the job runs.
package progress

import (
	"context"
	"errors"
	"time"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrNoJobs      = errors.New("no job has been started")
)

// JobExpiry is how long finished job state is retained.
var JobExpiry = time.Hour * 24

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Job struct {
	ID          string    `json:"job_id"`
	Status      Status    `json:"status"`
	Processed   int       `json:"processed"`
	Total       int       `json:"total"`
	Message     string    `json:"message,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// Percent is the integer percentage of processed documents. A finished
// job, or a started one with nothing to process, is at 100.
func (j *Job) Percent() int {
	if j.Status == StatusQueued {
		return 0
	}
	if j.Done() || j.Total <= 0 {
		return 100
	}
	p := j.Processed * 100 / j.Total
	return min(max(p, 0), 100)
}

func (j *Job) Done() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

type Tracker interface {
	// Enqueue registers a job that will be started later by a worker and
	// makes it the latest job.
	Enqueue(ctx context.Context, jobID string) error
	// Start registers a job with total documents to process and makes it
	// the latest job.
	Start(ctx context.Context, jobID string, total int) error
	// Advance marks one more document as processed.
	Advance(ctx context.Context, jobID string) error
	Finish(ctx context.Context, jobID string, message string) error
	Fail(ctx context.Context, jobID string, message string) error
	Get(ctx context.Context, jobID string) (*Job, error)
	// Latest returns the most recently started job.
	Latest(ctx context.Context) (*Job, error)
}
