package responses

import (
	"time"

	"github.com/draftlab/drawing-server/internal/domain/drawing"
	"github.com/draftlab/drawing-server/internal/domain/job"
)

// DrawingResponse is the public shape of an ingested drawing.
type DrawingResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	MimeType   string    `json:"mime_type"`
	Sha256     string    `json:"sha256"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// JobResponse is the public snapshot of an analysis job.
type JobResponse struct {
	ID         string     `json:"id"`
	FileID     string     `json:"file_id"`
	Status     string     `json:"status"`
	Progress   int        `json:"progress"`
	Error      string     `json:"error,omitempty"`
	Attempts   int        `json:"attempts"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// IngestResponse is returned from an upload: the stored drawing plus the
// job admitted (or coalesced) for it.
type IngestResponse struct {
	Drawing   DrawingResponse `json:"drawing"`
	Job       JobResponse     `json:"job"`
	Deduped   bool            `json:"deduped"`
	Coalesced bool            `json:"coalesced"`
}

func NewDrawingResponse(file *drawing.DrawingFile) DrawingResponse {
	return DrawingResponse{
		ID:         file.ID,
		Name:       file.Name,
		Size:       file.Size,
		Type:       string(file.Type),
		MimeType:   file.MimeType,
		Sha256:     file.Sha256,
		UploadedAt: file.UploadedAt,
	}
}

func NewJobResponse(j *job.Job) JobResponse {
	return JobResponse{
		ID:         j.ID,
		FileID:     j.FileID,
		Status:     string(j.Status),
		Progress:   j.Progress,
		Error:      j.Error,
		Attempts:   j.Attempts,
		EnqueuedAt: j.EnqueuedAt,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
	}
}
