package jobs

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Terminal reports whether a job in this status will not run again.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusSkipped
}

type EnqueueRequest struct {
	Source    string
	DedupeKey string
	Payload   JobPayload
}

// JobPayload describes one document waiting in the inbox.
type JobPayload struct {
	InputPath       string   `json:"input_path"`
	Format          string   `json:"format"`
	TargetLanguages []string `json:"target_languages"`
	Engine          string   `json:"engine,omitempty"`
}

// Result is what an executor reports for a finished job.
type Result struct {
	OutputFiles []string
	// Skipped marks a job that found nothing to do.
	Skipped bool
}

type TranslationJob struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	DedupeKey   string     `json:"dedupe_key"`
	Payload     JobPayload `json:"payload"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	OutputFiles []string   `json:"output_files,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
