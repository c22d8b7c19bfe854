package studio

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"asset-studio-server/modules/asset"
	"asset-studio-server/modules/generation"
)

// Runner executes one generation run; *generation.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, image asset.ProductImage, observe generation.Observer) (*asset.GenerationResult, error)
}

type Handler struct {
	runner   Runner
	maxBytes int64
	timeout  time.Duration
	log      zerolog.Logger
}

// GenerateResponse - POST /api/assets/generate body
type GenerateResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*asset.GenerationResult
}

func NewHandler(runner Runner, maxBytes int64, timeout time.Duration, log zerolog.Logger) *Handler {
	return &Handler{runner: runner, maxBytes: maxBytes, timeout: timeout, log: log}
}

// RegisterRoutes - synchronous generation and the category catalog
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/categories", h.HandleCategories).Methods(http.MethodGet)
	r.HandleFunc("/api/assets/generate", h.HandleGenerate).Methods(http.MethodPost, http.MethodOptions)
}

// HandleCategories - GET /api/categories
func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": asset.Catalog(),
		"defaults":   asset.DefaultCategories,
	})
}

// HandleGenerate - POST /api/assets/generate
// Runs the whole pipeline inside the request and answers with the aggregate.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
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
		writeJSON(w, status, GenerateResponse{Success: false, Error: err.Error()})
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	h.log.Info().Int("image_bytes", len(image.Data)).Str("mime", image.MIMEType).Msg("processing generate request")

	result, err := h.runner.Run(ctx, image, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			// nobody is left to read a response
			h.log.Info().Err(err).Msg("client went away, generation abandoned")
			return
		}
		status := statusFor(err)
		h.log.Error().Err(err).Int("status", status).Msg("generation run failed")
		writeJSON(w, status, GenerateResponse{Success: false, Error: err.Error()})
		return
	}

	h.log.Info().
		Int("succeeded", len(result.SuccessfulAssets)).
		Int("failed", len(result.FailedCategories)).
		Msg("generate response sent")
	writeJSON(w, http.StatusOK, GenerateResponse{Success: true, GenerationResult: result})
}

// statusFor maps run-level failures onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, generation.ErrNoRelevantCategories):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
