package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"asset-studio-server/modules/common/model"
)

// QueueKey is the list the worker pops job ids from.
const QueueKey = "jobs:queue"

var ErrJobNotFound = errors.New("job not found")

// Client - job records and uploaded images kept in Redis with a TTL
type Client struct {
	rdb redis.Cmdable
	ttl time.Duration
	log zerolog.Logger
}

func NewClient(rdb redis.Cmdable, ttl time.Duration, log zerolog.Logger) *Client {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Client{rdb: rdb, ttl: ttl, log: log}
}

func jobKey(jobID string) string   { return "jobs:" + jobID }
func imageKey(jobID string) string { return "jobs:" + jobID + ":image" }

// CreateJob stores the job record and its upload, then pushes the id onto the
// queue. Returns the queue length after the push.
func (c *Client) CreateJob(ctx context.Context, job *model.GenerationJob, image []byte) (int64, error) {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.JobStatus == "" {
		job.JobStatus = model.StatusPending
	}
	job.ImageBytes = len(image)

	data, err := json.Marshal(job)
	if err != nil {
		return 0, fmt.Errorf("failed to encode job: %w", err)
	}

	var queueLen *redis.IntCmd
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, jobKey(job.JobID), data, c.ttl)
		pipe.Set(ctx, imageKey(job.JobID), image, c.ttl)
		queueLen = pipe.LPush(ctx, QueueKey, job.JobID)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store job %s: %w", job.JobID, err)
	}

	c.log.Info().Str("job_id", job.JobID).Int("image_bytes", len(image)).Int64("queue_len", queueLen.Val()).Msg("job created")
	return queueLen.Val(), nil
}

// FetchJob - job record by id
func (c *Client) FetchJob(ctx context.Context, jobID string) (*model.GenerationJob, error) {
	data, err := c.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", jobID, err)
	}

	var job model.GenerationJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job %s: %w", jobID, err)
	}
	return &job, nil
}

// FetchImage - uploaded product image for a job
func (c *Client) FetchImage(ctx context.Context, jobID string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, imageKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: image for %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image for %s: %w", jobID, err)
	}
	return data, nil
}

// UpdateJob overwrites the record, keeping the original expiry window.
func (c *Client) UpdateJob(ctx context.Context, job *model.GenerationJob) error {
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := c.rdb.Set(ctx, jobKey(job.JobID), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.JobID, err)
	}
	return nil
}

// UpdateJobStatus sets status and the matching timestamps on job, then saves it.
func (c *Client) UpdateJobStatus(ctx context.Context, job *model.GenerationJob, status string) error {
	c.log.Debug().Str("job_id", job.JobID).Str("status", status).Msg("updating job status")

	now := time.Now().UTC()
	job.JobStatus = status
	switch status {
	case model.StatusProcessing:
		job.StartedAt = &now
	case model.StatusCompleted, model.StatusFailed, model.StatusUserCancelled:
		job.CompletedAt = &now
	}
	return c.UpdateJob(ctx, job)
}

// DeleteImage drops the stored upload once a job is finished with it.
func (c *Client) DeleteImage(ctx context.Context, jobID string) error {
	return c.rdb.Del(ctx, imageKey(jobID)).Err()
}

// QueueLength - number of jobs waiting
func (c *Client) QueueLength(ctx context.Context) (int64, error) {
	return c.rdb.LLen(ctx, QueueKey).Result()
}
