package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/alan-mat/docqa/internal/answer"
	"github.com/alan-mat/docqa/internal/indexing"
	"github.com/alan-mat/docqa/internal/ingest"
)

const maxJobIDLength = 128

type uploadAccepted struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// upload reads a ZIP archive from the multipart field "file" and indexes
// it, either within the request or through the worker queue.
func (s *Server) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return echo.NewHTTPError(http.StatusBadRequest, "No file uploaded.")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid upload request.")
	}
	if fh.Filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Empty filename.")
	}
	if !strings.HasSuffix(fh.Filename, ".zip") {
		return echo.NewHTTPError(http.StatusBadRequest, "File must be a ZIP.")
	}

	jobID := strings.TrimSpace(c.FormValue("job_id"))
	if jobID == "" {
		jobID = uuid.NewString()
	}
	if len(jobID) > maxJobIDLength {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid job id.")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.config.MaxUploadSize+1))
	if err != nil {
		return err
	}
	if int64(len(data)) > s.config.MaxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "File too large.")
	}

	ctx := c.Request().Context()
	slog.Info("received upload", "job", jobID, "file", fh.Filename, "bytes", len(data), "async", s.config.Async)

	if s.config.Async {
		if _, err := s.tracker.Get(ctx, jobID); err == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Job id already in use.")
		}
		if err := s.tracker.Enqueue(ctx, jobID); err != nil {
			slog.Warn("failed to register queued job", "job", jobID, "err", err)
		}
		if err := s.enqueuer.EnqueueIndexArchive(ctx, jobID, data); err != nil {
			if ferr := s.tracker.Fail(ctx, jobID, err.Error()); ferr != nil {
				slog.Warn("failed to record job failure", "job", jobID, "err", ferr)
			}
			return err
		}
		return c.JSON(http.StatusAccepted, uploadAccepted{
			JobID:   jobID,
			Message: indexing.MessageAccepted,
		})
	}

	res, err := s.indexer.IndexArchive(ctx, jobID, data)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidArchive) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid ZIP file")
		}
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type generateRequest struct {
	KeyPoints    []string `json:"key_points"`
	NumKeyPoints *int     `json:"num_key_points"`
}

type generateResponse struct {
	Answers []answer.Answer `json:"answers"`
}

func (s *Server) generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil || len(req.KeyPoints) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid key points data.")
	}

	num := answer.DefaultNumKeyPoints
	if req.NumKeyPoints != nil {
		num = *req.NumKeyPoints
	}

	answers, err := s.answerer.Answer(c.Request().Context(), req.KeyPoints, num)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, generateResponse{Answers: answers})
}
