package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"asset-studio-server/modules/asset"
)

const (
	DefaultPollInterval    = 10 * time.Second
	DefaultMaxPollAttempts = 60
)

var (
	ErrVideoTimeout    = errors.New("video operation did not complete")
	ErrNoVideoLocation = errors.New("video generation failed to return a valid URI")
)

// VideoGenerator handles the video-producing categories. It starts a
// long-running operation and polls it on a fixed interval, bounded by
// maxAttempts and the context.
type VideoGenerator struct {
	model        VideoModel
	pollInterval time.Duration
	maxAttempts  int
	log          zerolog.Logger
}

func NewVideoGenerator(model VideoModel, pollInterval time.Duration, maxAttempts int, log zerolog.Logger) *VideoGenerator {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxPollAttempts
	}
	return &VideoGenerator{model: model, pollInterval: pollInterval, maxAttempts: maxAttempts, log: log}
}

func (g *VideoGenerator) Generate(ctx context.Context, task Task) (asset.GeneratedAsset, error) {
	prompt, aspect, err := asset.BuildPrompt(task.Category, task.Description)
	if err != nil {
		return asset.GeneratedAsset{}, err
	}

	req := VideoRequest{Prompt: prompt, AspectRatio: aspect}
	if len(task.Source.Data) > 0 {
		src := task.Source
		req.Source = &src
	}

	op, err := g.model.StartVideo(ctx, req)
	if err != nil {
		return asset.GeneratedAsset{}, fmt.Errorf("%w for category %s: start video: %w", ErrGenerationFailed, task.Category, err)
	}
	if op == nil {
		return asset.GeneratedAsset{}, fmt.Errorf("%w for category %s: no operation returned", ErrGenerationFailed, task.Category)
	}

	op, err = g.waitForCompletion(ctx, task.Category, op)
	if err != nil {
		return asset.GeneratedAsset{}, err
	}

	payload := op.Video
	if payload == nil || len(payload.Data) == 0 {
		if op.Location == "" {
			return asset.GeneratedAsset{}, fmt.Errorf("%w for category %s: %w", ErrGenerationFailed, task.Category, ErrNoVideoLocation)
		}
		payload, err = g.model.FetchVideo(ctx, op.Location)
		if err != nil {
			return asset.GeneratedAsset{}, fmt.Errorf("%w for category %s: %w", ErrGenerationFailed, task.Category, err)
		}
		if payload == nil || len(payload.Data) == 0 {
			return asset.GeneratedAsset{}, fmt.Errorf("%w for category %s: empty video file", ErrGenerationFailed, task.Category)
		}
	}

	mimeType := payload.MIMEType
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	g.log.Info().Str("category", string(task.Category)).Int("bytes", len(payload.Data)).Msg("video ready")
	return asset.NewGeneratedAsset(task.Category, prompt, payload.Data, mimeType), nil
}

// waitForCompletion polls until the operation is done. Poll errors count as
// attempts; a finished operation carrying an error fails immediately.
func (g *VideoGenerator) waitForCompletion(ctx context.Context, category asset.Category, op *VideoOperation) (*VideoOperation, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if op.Done {
			if op.Error != "" {
				return nil, fmt.Errorf("%w for category %s: %s", ErrGenerationFailed, category, op.Error)
			}
			return op, nil
		}
		if attempt > g.maxAttempts {
			break
		}

		if err := sleepContext(ctx, g.pollInterval); err != nil {
			return nil, fmt.Errorf("%w for category %s: %w", ErrGenerationFailed, category, err)
		}

		next, err := g.model.PollVideo(ctx, op)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w for category %s: %w", ErrGenerationFailed, category, ctx.Err())
			}
			lastErr = err
			g.log.Warn().Err(err).Int("attempt", attempt).Str("category", string(category)).Msg("video poll failed")
			continue
		}
		if next == nil {
			lastErr = errors.New("poll returned no operation")
			continue
		}
		op = next
		g.log.Debug().Int("attempt", attempt).Bool("done", op.Done).Str("category", string(category)).Msg("video poll")
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w for category %s: %w after %d polls: %w", ErrGenerationFailed, category, ErrVideoTimeout, g.maxAttempts, lastErr)
	}
	return nil, fmt.Errorf("%w for category %s: %w after %d polls", ErrGenerationFailed, category, ErrVideoTimeout, g.maxAttempts)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
