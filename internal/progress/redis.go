package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "docqa:job:"
	latestKey = "docqa:job:latest"
)

// jobRecord is the hash layout of a job in redis.
type jobRecord struct {
	ID          string `redis:"id"`
	Status      string `redis:"status"`
	Processed   int    `redis:"processed"`
	Total       int    `redis:"total"`
	Message     string `redis:"message"`
	StartedAt   int64  `redis:"started_at"`
	CompletedAt int64  `redis:"completed_at"`
}

// RedisTracker keeps job state in redis hashes, so the HTTP server and
// background workers observe the same jobs.
type RedisTracker struct {
	rdb    redis.UniversalClient
	expiry time.Duration
}

func NewRedisTracker(rdb redis.UniversalClient, expiry time.Duration) *RedisTracker {
	if expiry <= 0 {
		expiry = JobExpiry
	}
	return &RedisTracker{
		rdb:    rdb,
		expiry: expiry,
	}
}

func jobKey(jobID string) string {
	return keyPrefix + jobID
}

func (t *RedisTracker) Enqueue(ctx context.Context, jobID string) error {
	return t.put(ctx, jobID, StatusQueued, 0)
}

func (t *RedisTracker) Start(ctx context.Context, jobID string, total int) error {
	return t.put(ctx, jobID, StatusRunning, total)
}

func (t *RedisTracker) put(ctx context.Context, jobID string, status Status, total int) error {
	key := jobKey(jobID)
	_, err := t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]any{
			"id":           jobID,
			"status":       string(status),
			"processed":    0,
			"total":        total,
			"message":      "",
			"started_at":   time.Now().UnixMilli(),
			"completed_at": 0,
		})
		pipe.Expire(ctx, key, t.expiry)
		pipe.Set(ctx, latestKey, jobID, t.expiry)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store job '%s': %w", jobID, err)
	}
	return nil
}

func (t *RedisTracker) Advance(ctx context.Context, jobID string) error {
	if err := t.exists(ctx, jobID); err != nil {
		return err
	}
	if err := t.rdb.HIncrBy(ctx, jobKey(jobID), "processed", 1).Err(); err != nil {
		return fmt.Errorf("failed to advance job '%s': %w", jobID, err)
	}
	return nil
}

func (t *RedisTracker) Finish(ctx context.Context, jobID string, message string) error {
	job, err := t.Get(ctx, jobID)
	if err != nil {
		return err
	}
	return t.complete(ctx, jobID, map[string]any{
		"status":    string(StatusCompleted),
		"processed": job.Total,
		"message":   message,
	})
}

func (t *RedisTracker) Fail(ctx context.Context, jobID string, message string) error {
	if err := t.exists(ctx, jobID); err != nil {
		return err
	}
	return t.complete(ctx, jobID, map[string]any{
		"status":  string(StatusFailed),
		"message": message,
	})
}

func (t *RedisTracker) complete(ctx context.Context, jobID string, fields map[string]any) error {
	fields["completed_at"] = time.Now().UnixMilli()
	if err := t.rdb.HSet(ctx, jobKey(jobID), fields).Err(); err != nil {
		return fmt.Errorf("failed to update job '%s': %w", jobID, err)
	}
	return nil
}

func (t *RedisTracker) exists(ctx context.Context, jobID string) error {
	n, err := t.rdb.Exists(ctx, jobKey(jobID)).Result()
	if err != nil {
		return fmt.Errorf("failed to look up job '%s': %w", jobID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: '%s'", ErrJobNotFound, jobID)
	}
	return nil
}

func (t *RedisTracker) Get(ctx context.Context, jobID string) (*Job, error) {
	res := t.rdb.HGetAll(ctx, jobKey(jobID))
	vals, err := res.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job '%s': %w", jobID, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrJobNotFound, jobID)
	}

	var rec jobRecord
	if err := res.Scan(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode job '%s': %w", jobID, err)
	}

	job := &Job{
		ID:        rec.ID,
		Status:    Status(rec.Status),
		Processed: rec.Processed,
		Total:     rec.Total,
		Message:   rec.Message,
		StartedAt: time.UnixMilli(rec.StartedAt),
	}
	if rec.CompletedAt > 0 {
		job.CompletedAt = time.UnixMilli(rec.CompletedAt)
	}
	return job, nil
}

func (t *RedisTracker) Latest(ctx context.Context) (*Job, error) {
	jobID, err := t.rdb.Get(ctx, latestKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoJobs
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest job: %w", err)
	}
	return t.Get(ctx, jobID)
}
