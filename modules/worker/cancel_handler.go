package worker

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"asset-studio-server/modules/common/database"
	redisutil "asset-studio-server/modules/common/redis"
)

// CancelHandler - job cancel API
type CancelHandler struct {
	rdb     redis.Cmdable
	store   *database.Client
	flagTTL time.Duration
	log     zerolog.Logger
}

func NewCancelHandler(rdb redis.Cmdable, store *database.Client, flagTTL time.Duration, log zerolog.Logger) *CancelHandler {
	if flagTTL <= 0 {
		flagTTL = 2 * time.Hour
	}
	return &CancelHandler{rdb: rdb, store: store, flagTTL: flagTTL, log: log}
}

// RegisterRoutes - POST /api/assets/jobs/{jobId}/cancel
func (h *CancelHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/assets/jobs/{jobId}/cancel", h.CancelJob).Methods(http.MethodPost, http.MethodOptions)
}

// CancelJob raises the cancel flag; the worker notices it on its next check
// and cancels the run context.
func (h *CancelHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	jobID := mux.Vars(r)["jobId"]
	ctx := r.Context()

	job, err := h.store.FetchJob(ctx, jobID)
	if errors.Is(err, database.ErrJobNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("failed to load job")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load job"})
		return
	}

	if job.IsFinished() {
		writeJSON(w, http.StatusConflict, map[string]any{
			"success":    false,
			"message":    "Job already " + job.JobStatus,
			"job_id":     jobID,
			"job_status": job.JobStatus,
		})
		return
	}

	if err := redisutil.SetJobCancelled(ctx, h.rdb, jobID, h.flagTTL); err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("failed to set cancel flag")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to set cancel flag"})
		return
	}

	h.log.Info().Str("job_id", jobID).Str("status", job.JobStatus).Int("settled", job.Settled).Msg("cancel flag set")
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"message":        "Cancel request sent. In-flight generations will be stopped.",
		"job_id":         jobID,
		"current_status": job.JobStatus,
		"settled":        job.Settled,
		"total":          job.Total,
	})
}
