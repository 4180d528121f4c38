package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/draftlab/drawing-server/internal/config"
	"github.com/draftlab/drawing-server/internal/domain/drawing"
	"github.com/draftlab/drawing-server/internal/domain/job"
	"github.com/draftlab/drawing-server/internal/domain/retry"
	"github.com/draftlab/drawing-server/utils/drawid"
)

// Engine is the opaque analysis capability. One implementation per backend;
// the pipeline depends only on this contract.
type Engine interface {
	Analyze(ctx context.Context, req EngineRequest) (*RawExtraction, error)
}

// EngineRequest carries one drawing into an engine backend. Progress, when
// non-nil, is invoked with coarse 0-100 values between internal steps.
type EngineRequest struct {
	File     *drawing.DrawingFile
	Data     []byte
	Progress func(pct int)
}

// JobQueue is the slice of the queue the orchestrator drives.
type JobQueue interface {
	Enqueue(fileID string) (*job.Job, bool, error)
	Get(jobID string) (*job.Job, error)
	LatestJobID(fileID string) (string, bool)
	MarkAnalyzing(jobID string) error
	ReportProgress(jobID string, progress int) error
	MarkCompleted(jobID string) error
	MarkFailed(jobID string, cause error, msg string) error
}

// ResultRepository defines persistence operations for analysis results.
type ResultRepository interface {
	Save(ctx context.Context, result *AnalysisResult) error
	GetAll(ctx context.Context) ([]AnalysisResult, error)
	GetByID(ctx context.Context, id string) (*AnalysisResult, error)
	GetLatestByFile(ctx context.Context, fileID string) (*AnalysisResult, error)
	UpdateFields(ctx context.Context, id string, fields UpdateFields) (*AnalysisResult, error)
}

// UpdateFields is the narrow update surface for inline edits. Nil members
// are left untouched.
type UpdateFields struct {
	Title         *string     `json:"title,omitempty"`
	DrawingNumber *string     `json:"drawing_number,omitempty"`
	Dimensions    []Dimension `json:"dimensions,omitempty"`
	PartsList     []Part      `json:"parts_list,omitempty"`
	Materials     []Material  `json:"materials,omitempty"`
}

// Validate applies the same constraints as ingestion to edited values.
func (u UpdateFields) Validate() error {
	for _, d := range u.Dimensions {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	for _, p := range u.PartsList {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, m := range u.Materials {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Service orchestrates analysis jobs: submission, execution on a worker,
// and result persistence.
type Service struct {
	cfg      *config.Config
	queue    JobQueue
	engine   Engine
	results  ResultRepository
	drawings drawing.Repository
	blobs    drawing.Storage
	policy   retry.Policy
	log      zerolog.Logger
}

func NewService(
	cfg *config.Config,
	queue JobQueue,
	engine Engine,
	results ResultRepository,
	drawings drawing.Repository,
	blobs drawing.Storage,
	log zerolog.Logger,
) *Service {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.EngineMaxRetries
	return &Service{
		cfg:      cfg,
		queue:    queue,
		engine:   engine,
		results:  results,
		drawings: drawings,
		blobs:    blobs,
		policy:   policy,
		log:      log.With().Str("component", "analysis-service").Logger(),
	}
}

// Submit enqueues an analysis job for an ingested drawing. A live job for
// the same file is coalesced: the existing job is returned and no new work
// is scheduled.
func (s *Service) Submit(ctx context.Context, fileID string) (*job.Job, bool, error) {
	if _, err := s.drawings.GetByID(ctx, fileID); err != nil {
		return nil, false, err
	}
	return s.queue.Enqueue(fileID)
}

// ExecuteJob runs one dequeued job to a terminal state. Called by workers;
// failures are recorded on the job and the result store, never returned
// silently.
func (s *Service) ExecuteJob(ctx context.Context, j *job.Job) error {
	if err := s.queue.MarkAnalyzing(j.ID); err != nil {
		// Job reached a terminal state (cancelled or timed out) before a
		// worker picked it up.
		s.log.Debug().Str("job_id", j.ID).Err(err).Msg("job no longer runnable")
		return nil
	}

	raw, err := s.runEngine(ctx, j)
	if err != nil {
		return s.recordFailure(ctx, j, err)
	}

	dims, parts, materials, report := Normalize(raw)
	if report.Dropped() > 0 {
		s.log.Warn().
			Str("job_id", j.ID).
			Int("dropped", report.Dropped()).
			Msg("discarded malformed entries from engine output")
	}

	result := &AnalysisResult{
		ID:            drawid.NewResult(),
		FileID:        j.FileID,
		JobID:         j.ID,
		Dimensions:    dims,
		PartsList:     parts,
		Materials:     materials,
		Title:         raw.Title,
		DrawingNumber: raw.DrawingNumber,
		AnalyzedAt:    time.Now().UTC(),
		Status:        ResultCompleted,
	}

	if err := s.persist(ctx, j, result); err != nil {
		return s.recordFailure(ctx, j, err)
	}

	if err := s.queue.MarkCompleted(j.ID); err != nil {
		s.log.Error().Err(err).Str("job_id", j.ID).Msg("mark completed")
	}

	s.log.Info().
		Str("job_id", j.ID).
		Str("file_id", j.FileID).
		Int("dimensions", len(dims)).
		Int("parts", len(parts)).
		Int("materials", len(materials)).
		Msg("analysis completed")

	return nil
}

func (s *Service) runEngine(ctx context.Context, j *job.Job) (*RawExtraction, error) {
	file, err := s.drawings.GetByID(ctx, j.FileID)
	if err != nil {
		return nil, err
	}

	reader, _, err := s.blobs.Download(ctx, file.StorageKey)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return nil, err
	}
	_ = s.queue.ReportProgress(j.ID, 10)

	req := EngineRequest{
		File: file,
		Data: data,
		Progress: func(pct int) {
			// Engine progress is mapped into the 10-95 band; completion
			// closes the job at 100.
			_ = s.queue.ReportProgress(j.ID, 10+pct*85/100)
		},
	}

	return retry.ExecuteWithResult(ctx, s.policy,
		func(err error) bool { return errors.Is(err, ErrEngineUnavailable) },
		func(ctx context.Context, attempt int) (*RawExtraction, error) {
			if attempt > 0 {
				s.log.Warn().
					Str("job_id", j.ID).
					Int("attempt", attempt).
					Msg("retrying engine call")
			}
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.EngineCallTimeout)
			defer cancel()
			return s.engine.Analyze(callCtx, req)
		})
}

// recordFailure marks the job failed and stores a failed result carrying
// the error so no failure is swallowed.
func (s *Service) recordFailure(ctx context.Context, j *job.Job, cause error) error {
	msg := failureMessage(cause)
	if err := s.queue.MarkFailed(j.ID, cause, msg); err != nil {
		s.log.Debug().Err(err).Str("job_id", j.ID).Msg("job already terminal")
	}

	result := &AnalysisResult{
		ID:         drawid.NewResult(),
		FileID:     j.FileID,
		JobID:      j.ID,
		Dimensions: []Dimension{},
		PartsList:  []Part{},
		Materials:  []Material{},
		AnalyzedAt: time.Now().UTC(),
		Status:     ResultFailed,
		Error:      msg,
	}
	if err := s.persist(ctx, j, result); err != nil && !errors.Is(err, ErrStaleWrite) {
		s.log.Error().Err(err).Str("job_id", j.ID).Msg("store failed result")
	}

	s.log.Error().Err(cause).Str("job_id", j.ID).Str("file_id", j.FileID).Msg("analysis failed")
	return cause
}

// persist saves the result unless a newer job for the file has superseded
// this one.
func (s *Service) persist(ctx context.Context, j *job.Job, result *AnalysisResult) error {
	if latest, ok := s.queue.LatestJobID(j.FileID); ok && latest != j.ID {
		return fmt.Errorf("%w: job %s superseded by %s", ErrStaleWrite, j.ID, latest)
	}
	return s.results.Save(ctx, result)
}

// GetAll returns every stored result in analyzedAt order.
func (s *Service) GetAll(ctx context.Context) ([]AnalysisResult, error) {
	return s.results.GetAll(ctx)
}

// GetByFile returns the latest result for a file.
func (s *Service) GetByFile(ctx context.Context, fileID string) (*AnalysisResult, error) {
	return s.results.GetLatestByFile(ctx, fileID)
}

// UpdateFields applies a partial, validated edit to a stored result.
func (s *Service) UpdateFields(ctx context.Context, id string, fields UpdateFields) (*AnalysisResult, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	return s.results.UpdateFields(ctx, id, fields)
}

func failureMessage(cause error) string {
	switch {
	case errors.Is(cause, ErrEngineUnavailable):
		return "analysis engine unavailable after retries: " + cause.Error()
	case errors.Is(cause, ErrEngineFailure):
		return "analysis engine rejected the drawing: " + cause.Error()
	case errors.Is(cause, context.DeadlineExceeded):
		return "analysis timed out"
	case errors.Is(cause, context.Canceled):
		return "analysis cancelled"
	default:
		return cause.Error()
	}
}
