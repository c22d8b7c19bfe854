package worker

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"asset-studio-server/modules/common/database"
)

// StatusHandler serves job records to polling clients.
type StatusHandler struct {
	store *database.Client
	log   zerolog.Logger
}

func NewStatusHandler(store *database.Client, log zerolog.Logger) *StatusHandler {
	return &StatusHandler{store: store, log: log}
}

// RegisterRoutes - GET /api/assets/jobs/{jobId}
func (h *StatusHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/assets/jobs/{jobId}", h.GetJob).Methods(http.MethodGet)
}

func (h *StatusHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.store.FetchJob(r.Context(), jobID)
	if errors.Is(err, database.ErrJobNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("failed to load job")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load job"})
		return
	}

	writeJSON(w, http.StatusOK, job)
}
