package model

import (
	"time"

	"asset-studio-server/modules/asset"
)

// Job status values
const (
	StatusPending       = "pending"
	StatusProcessing    = "processing"
	StatusCompleted     = "completed"
	StatusFailed        = "failed"
	StatusUserCancelled = "user_cancelled"
)

// GenerationJob - queued generation run, kept in Redis until it expires
type GenerationJob struct {
	JobID       string                  `json:"job_id"`
	JobStatus   string                  `json:"job_status"`
	State       string                  `json:"state"`
	Message     string                  `json:"message,omitempty"`
	MIMEType    string                  `json:"mime_type"`
	ImageBytes  int                     `json:"image_bytes"`
	Description string                  `json:"description,omitempty"`
	Categories  []asset.Category        `json:"categories,omitempty"`
	Settled     int                     `json:"settled"`
	Total       int                     `json:"total"`
	Result      *asset.GenerationResult `json:"result,omitempty"`
	Error       string                  `json:"error_message,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	StartedAt   *time.Time              `json:"started_at,omitempty"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// IsFinished reports whether the job reached a final status.
func (j *GenerationJob) IsFinished() bool {
	switch j.JobStatus {
	case StatusCompleted, StatusFailed, StatusUserCancelled:
		return true
	}
	return false
}
