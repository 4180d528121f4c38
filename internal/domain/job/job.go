package job

import (
	"errors"
	"time"
)

// Failure reasons recorded on a failed job. Every terminal failure carries
// one of these as the sentinel cause plus a human-readable message.
var (
	ErrDuplicateInFlight = errors.New("a job is already in flight for this file")
	ErrTimeout           = errors.New("analysis deadline exceeded")
	ErrCancelled         = errors.New("analysis cancelled")
)

// Job tracks one analysis request for one drawing file. Exactly one
// non-terminal job may exist per file at a time.
type Job struct {
	ID         string     `json:"id"`
	FileID     string     `json:"file_id"`
	Status     Status     `json:"status"`
	Progress   int        `json:"progress"` // 0-100, monotonic while analyzing
	Error      string     `json:"error,omitempty"`
	Attempts   int        `json:"attempts"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Event is one entry in a job's ordered status/progress sequence. Seq is
// assigned by the queue and strictly increases within a job.
type Event struct {
	Seq      int    `json:"seq"`
	JobID    string `json:"job_id"`
	FileID   string `json:"file_id"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

// Terminal reports whether the event closes the job's event sequence.
func (e Event) Terminal() bool {
	return e.Status.IsTerminal()
}
