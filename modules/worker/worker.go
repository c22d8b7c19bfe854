package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"asset-studio-server/modules/asset"
	"asset-studio-server/modules/common/database"
	"asset-studio-server/modules/common/model"
	redisutil "asset-studio-server/modules/common/redis"
	"asset-studio-server/modules/generation"
)

// Runner executes one generation run; *generation.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, image asset.ProductImage, observe generation.Observer) (*asset.GenerationResult, error)
}

// Publisher pushes progress to listeners of a job.
type Publisher interface {
	Publish(topic string, v any)
}

// ProgressMessage is what /ws subscribers of a job receive.
type ProgressMessage struct {
	JobID     string `json:"job_id"`
	JobStatus string `json:"job_status"`
	generation.Event
	Result *asset.GenerationResult `json:"result,omitempty"`
}

type Options struct {
	Concurrency int
	CancelCheck time.Duration
	RunDeadline time.Duration
	PopTimeout  time.Duration
}

// Worker pops job ids off the Redis queue and runs them.
type Worker struct {
	rdb    redis.Cmdable
	store  *database.Client
	runner Runner
	pub    Publisher
	opts   Options
	log    zerolog.Logger
}

func New(rdb redis.Cmdable, store *database.Client, runner Runner, pub Publisher, opts Options, log zerolog.Logger) *Worker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.CancelCheck <= 0 {
		opts.CancelCheck = 2 * time.Second
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 5 * time.Second
	}
	return &Worker{rdb: rdb, store: store, runner: runner, pub: pub, opts: opts, log: log}
}

// Start blocks until ctx is cancelled, then waits for in-flight jobs.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().Str("queue", database.QueueKey).Int("concurrency", w.opts.Concurrency).Msg("worker watching queue")

	slots := make(chan struct{}, w.opts.Concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			w.log.Info().Msg("worker stopping")
			return
		}

		jobID, err := w.pop(ctx)
		if err != nil {
			<-slots
			if ctx.Err() != nil {
				w.log.Info().Msg("worker stopping")
				return
			}
			if !errors.Is(err, redis.Nil) {
				w.log.Error().Err(err).Msg("redis BRPOP failed")
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
				}
			}
			continue
		}

		w.log.Info().Str("job_id", jobID).Msg("received job")
		wg.Add(1)
		go func() {
			defer func() {
				<-slots
				wg.Done()
			}()
			if err := w.ProcessJob(ctx, jobID); err != nil {
				w.log.Error().Err(err).Str("job_id", jobID).Msg("job processing failed")
			}
		}()
	}
}

func (w *Worker) pop(ctx context.Context) (string, error) {
	result, err := w.rdb.BRPop(ctx, w.opts.PopTimeout, database.QueueKey).Result()
	if err != nil {
		return "", err
	}
	// result[0] is the list name
	return result[1], nil
}

// ProcessJob runs one queued job to a final status. The returned error covers
// bookkeeping failures only; a failed run is recorded on the job.
func (w *Worker) ProcessJob(ctx context.Context, jobID string) error {
	jobLog := w.log.With().Str("job_id", jobID).Logger()

	job, err := w.store.FetchJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.IsFinished() {
		jobLog.Warn().Str("status", job.JobStatus).Msg("job already finished, skipping")
		return nil
	}
	defer w.cleanup(jobID)

	if redisutil.IsJobCancelled(ctx, w.rdb, jobID) {
		jobLog.Info().Msg("job cancelled before start")
		return w.finish(ctx, job, model.StatusUserCancelled, nil, context.Canceled)
	}

	data, err := w.store.FetchImage(ctx, jobID)
	if err != nil {
		_ = w.finish(ctx, job, model.StatusFailed, nil, err)
		return err
	}

	if err := w.store.UpdateJobStatus(ctx, job, model.StatusProcessing); err != nil {
		return err
	}
	w.publish(job, generation.Event{State: generation.StateIdle})

	var (
		runCtx    context.Context
		cancelRun context.CancelFunc
	)
	if w.opts.RunDeadline > 0 {
		runCtx, cancelRun = context.WithTimeout(ctx, w.opts.RunDeadline)
	} else {
		runCtx, cancelRun = context.WithCancel(ctx)
	}
	defer cancelRun()

	var cancelled atomic.Bool
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		w.watchCancel(runCtx, jobID, func() {
			cancelled.Store(true)
			cancelRun()
		})
	}()

	var mu sync.Mutex
	observe := func(ev generation.Event) {
		mu.Lock()
		defer mu.Unlock()
		applyEvent(job, ev)
		if err := w.store.UpdateJob(ctx, job); err != nil {
			jobLog.Warn().Err(err).Msg("failed to persist progress")
		}
		w.publish(job, ev)
	}

	started := time.Now()
	result, runErr := w.runner.Run(runCtx, asset.ProductImage{Data: data, MIMEType: job.MIMEType}, observe)
	cancelRun()
	<-watchDone

	switch {
	case cancelled.Load():
		jobLog.Info().Dur("elapsed", time.Since(started)).Msg("job cancelled by user")
		return w.finish(ctx, job, model.StatusUserCancelled, result, context.Canceled)
	case runErr != nil:
		jobLog.Error().Err(runErr).Dur("elapsed", time.Since(started)).Msg("generation run failed")
		return w.finish(ctx, job, model.StatusFailed, nil, runErr)
	default:
		jobLog.Info().
			Int("succeeded", len(result.SuccessfulAssets)).
			Int("failed", len(result.FailedCategories)).
			Dur("elapsed", time.Since(started)).
			Msg("job completed")
		return w.finish(ctx, job, model.StatusCompleted, result, nil)
	}
}

// watchCancel polls the cancel flag until ctx ends or the flag shows up.
func (w *Worker) watchCancel(ctx context.Context, jobID string, onCancel func()) {
	ticker := time.NewTicker(w.opts.CancelCheck)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if redisutil.IsJobCancelled(ctx, w.rdb, jobID) {
				w.log.Info().Str("job_id", jobID).Msg("cancel flag detected, stopping run")
				onCancel()
				return
			}
		}
	}
}

// finish records the final status even when ctx is already cancelled by shutdown.
func (w *Worker) finish(ctx context.Context, job *model.GenerationJob, status string, result *asset.GenerationResult, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	job.Result = result
	state := generation.StateAggregated
	if status != model.StatusCompleted {
		state = generation.StateAborted
	}
	job.State = string(state)
	job.Message = ""
	if cause != nil {
		job.Error = cause.Error()
	}
	if err := w.store.UpdateJobStatus(ctx, job, status); err != nil {
		return err
	}

	ev := generation.Event{State: state}
	if cause != nil {
		ev.Error = cause.Error()
	}
	w.publish(job, ev)
	return nil
}

func (w *Worker) cleanup(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.store.DeleteImage(ctx, jobID); err != nil {
		w.log.Warn().Err(err).Str("job_id", jobID).Msg("failed to delete job image")
	}
	if err := redisutil.ClearJobCancelled(ctx, w.rdb, jobID); err != nil {
		w.log.Warn().Err(err).Str("job_id", jobID).Msg("failed to clear cancel flag")
	}
}

func (w *Worker) publish(job *model.GenerationJob, ev generation.Event) {
	if w.pub == nil {
		return
	}
	w.pub.Publish(job.JobID, ProgressMessage{
		JobID:     job.JobID,
		JobStatus: job.JobStatus,
		Event:     ev,
		Result:    job.Result,
	})
}

func applyEvent(job *model.GenerationJob, ev generation.Event) {
	job.State = string(ev.State)
	if ev.Message != "" {
		job.Message = ev.Message
	}
	if ev.Description != "" {
		job.Description = string(ev.Description)
	}
	if len(ev.Categories) > 0 {
		job.Categories = ev.Categories
		job.Total = len(ev.Categories)
	}
	if ev.Total > 0 {
		job.Total = ev.Total
	}
	if ev.Settled > job.Settled {
		job.Settled = ev.Settled
	}
}
