package worker

import (
	"context"
	"errors"

	"asset-studio-server/modules/asset"
	"asset-studio-server/modules/common/database"
	"asset-studio-server/modules/generation"
)

// SnapshotFor rebuilds a job's latest ProgressMessage from the store, so a
// late /ws subscriber starts from the current state. The flag reports whether
// the job already finished.
func SnapshotFor(store *database.Client) func(ctx context.Context, jobID string) (any, bool, error) {
	return func(ctx context.Context, jobID string) (any, bool, error) {
		job, err := store.FetchJob(ctx, jobID)
		if errors.Is(err, database.ErrJobNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}

		return ProgressMessage{
			JobID:     job.JobID,
			JobStatus: job.JobStatus,
			Event: generation.Event{
				State:       generation.State(job.State),
				Message:     job.Message,
				Description: asset.ProductDescription(job.Description),
				Categories:  job.Categories,
				Settled:     job.Settled,
				Total:       job.Total,
				Error:       job.Error,
			},
			Result: job.Result,
		}, job.IsFinished(), nil
	}
}
