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

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/alan-mat/docqa/internal/progress"
)

type progressEvent struct {
	JobID    string          `json:"job_id"`
	Progress int             `json:"progress"`
	Status   progress.Status `json:"status"`
	Message  string          `json:"message,omitempty"`
}

func (s *Server) jobProgress(c echo.Context) error {
	job, err := s.tracker.Get(c.Request().Context(), c.Param("job_id"))
	if err != nil {
		return lookupError(err)
	}
	return s.streamProgress(c, job)
}

// latestProgress follows the most recently started job, which matches a
// single client uploading one archive at a time. The job is resolved once,
// so a newer upload does not take over an open stream.
func (s *Server) latestProgress(c echo.Context) error {
	job, err := s.tracker.Latest(c.Request().Context())
	if err != nil {
		return lookupError(err)
	}
	return s.streamProgress(c, job)
}

func lookupError(err error) error {
	if errors.Is(err, progress.ErrJobNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Job not found.")
	}
	if errors.Is(err, progress.ErrNoJobs) {
		return echo.NewHTTPError(http.StatusNotFound, "No upload has been started.")
	}
	return err
}

// streamProgress sends the job's progress as server-sent events every
// progress interval until the job is done or the client goes away.
func (s *Server) streamProgress(c echo.Context, job *progress.Job) error {
	ctx := c.Request().Context()

	resp := c.Response()
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(s.config.ProgressInterval)
	defer ticker.Stop()

	readFails := 0
	for {
		if err := writeProgressEvent(resp, job); err != nil {
			slog.Debug("progress client went away", "job", job.ID, "err", err)
			return nil
		}
		flusher.Flush()

		if job.Percent() >= 100 {
			slog.Debug("progress stream done", "job", job.ID, "status", job.Status)
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		next, err := s.tracker.Get(ctx, job.ID)
		if err != nil {
			slog.Warn("failed to read job progress", "job", job.ID, "err", err)
			readFails += 1
			if readFails >= 10 {
				slog.Error("exceeded progress read attempts, closing stream", "job", job.ID)
				return nil
			}
			continue
		}
		readFails = 0
		job = next
	}
}

func writeProgressEvent(w http.ResponseWriter, job *progress.Job) error {
	data, err := json.Marshal(progressEvent{
		JobID:    job.ID,
		Progress: job.Percent(),
		Status:   job.Status,
		Message:  job.Message,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
