package worker

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"asset-studio-server/modules/asset"
	"asset-studio-server/modules/common/database"
	"asset-studio-server/modules/common/model"
	"asset-studio-server/modules/generation"
)

// EnqueueHandler - accepts an upload and queues a generation job
type EnqueueHandler struct {
	store    *database.Client
	maxBytes int64
	log      zerolog.Logger
}

// EnqueueResponse - enqueue result
type EnqueueResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	JobID         string `json:"job_id,omitempty"`
	Queue         string `json:"queue,omitempty"`
	QueuePosition int64  `json:"queuePosition,omitempty"`
}

func NewEnqueueHandler(store *database.Client, maxBytes int64, log zerolog.Logger) *EnqueueHandler {
	return &EnqueueHandler{store: store, maxBytes: maxBytes, log: log}
}

// RegisterRoutes - POST /api/assets/jobs
func (h *EnqueueHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/assets/jobs", h.HandleEnqueue).Methods(http.MethodPost, http.MethodOptions)
}

func (h *EnqueueHandler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	image, err := asset.ReadUpload(w, r, h.maxBytes)
	if err != nil {
		h.log.Warn().Err(err).Msg("rejected upload")
		status := http.StatusBadRequest
		if !asset.IsValidationError(err) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, EnqueueResponse{Success: false, Error: err.Error()})
		return
	}

	job := &model.GenerationJob{
		JobID:     uuid.NewString(),
		JobStatus: model.StatusPending,
		State:     string(generation.StateIdle),
		MIMEType:  image.MIMEType,
	}

	position, err := h.store.CreateJob(r.Context(), job, image.Data)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to enqueue job")
		writeJSON(w, http.StatusInternalServerError, EnqueueResponse{Success: false, Error: "Failed to enqueue job"})
		return
	}

	writeJSON(w, http.StatusAccepted, EnqueueResponse{
		Success:       true,
		Message:       "Job enqueued successfully",
		JobID:         job.JobID,
		Queue:         database.QueueKey,
		QueuePosition: position,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
