// Package jobqueue serializes analysis work per drawing file and publishes
// ordered status/progress events to subscribers.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/draftlab/drawing-server/internal/domain/job"
	"github.com/draftlab/drawing-server/internal/infrastructure/metrics"
	"github.com/draftlab/drawing-server/utils/drawid"
)

var ErrJobNotFound = errors.New("job not found")

// An analysis job emits at most 2 admission events, 100 progress increments
// and 1 terminal event; subscriber channels sized above that bound never
// block the publisher.
const eventChannelCap = 112

// Config tunes queue behavior.
type Config struct {
	// JobTimeout fails jobs stuck in analyzing past this deadline,
	// independent of the engine adapter's own timeout.
	JobTimeout time.Duration
	// WatchdogPeriod is how often stuck jobs are checked for.
	WatchdogPeriod time.Duration
	// RetentionAge is how long terminal jobs stay queryable.
	RetentionAge time.Duration
	// DispatchDepth bounds how many pending jobs wait for a worker.
	DispatchDepth int
}

type jobState struct {
	job         job.Job
	log         []job.Event
	subscribers map[string]chan job.Event
	cancel      context.CancelFunc
}

// Queue is an in-memory coalescing job queue. At most one non-terminal job
// exists per fileID; transitions follow the job state machine and every
// subscriber observes the job's full event sequence in order.
type Queue struct {
	cfg Config
	log zerolog.Logger

	mu        sync.Mutex
	jobs      map[string]*jobState // by job id
	active    map[string]string    // fileID -> live job id
	latest    map[string]string    // fileID -> newest job id ever enqueued
	dispatch  chan string
	stopWatch context.CancelFunc
}

func New(cfg Config, log zerolog.Logger) *Queue {
	if cfg.DispatchDepth <= 0 {
		cfg.DispatchDepth = 256
	}
	q := &Queue{
		cfg:      cfg,
		log:      log.With().Str("component", "job-queue").Logger(),
		jobs:     make(map[string]*jobState),
		active:   make(map[string]string),
		latest:   make(map[string]string),
		dispatch: make(chan string, cfg.DispatchDepth),
	}
	return q
}

// Start launches the watchdog. Call Stop to halt it.
func (q *Queue) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	q.mu.Lock()
	q.stopWatch = cancel
	q.mu.Unlock()
	go q.watchdog(ctx)
}

// Stop halts the watchdog.
func (q *Queue) Stop() {
	q.mu.Lock()
	cancel := q.stopWatch
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Enqueue admits a job for the file. When a live job already exists the
// call coalesces: the existing job is returned with coalesced=true and no
// new work is scheduled.
func (q *Queue) Enqueue(fileID string) (*job.Job, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if liveID, ok := q.active[fileID]; ok {
		state := q.jobs[liveID]
		snapshot := state.job
		q.log.Debug().Str("file_id", fileID).Str("job_id", liveID).Msg("coalesced duplicate submission")
		return &snapshot, true, nil
	}

	j := job.Job{
		ID:         drawid.NewJob(),
		FileID:     fileID,
		Status:     job.StatusPending,
		EnqueuedAt: time.Now().UTC(),
	}
	state := &jobState{
		job:         j,
		subscribers: make(map[string]chan job.Event),
	}
	q.jobs[j.ID] = state
	q.active[fileID] = j.ID
	q.latest[fileID] = j.ID
	q.publishLocked(state, "")

	select {
	case q.dispatch <- j.ID:
	default:
		// Dispatch backlog full; fail fast instead of blocking the caller.
		delete(q.jobs, j.ID)
		delete(q.active, fileID)
		return nil, false, fmt.Errorf("%w: dispatch backlog full", job.ErrDuplicateInFlight)
	}

	metrics.RecordJobEnqueued()
	snapshot := state.job
	return &snapshot, false, nil
}

// Dequeue returns the next pending job, or nil when none is waiting.
// Jobs that reached a terminal state while queued are skipped.
func (q *Queue) Dequeue(ctx context.Context) (*job.Job, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case id := <-q.dispatch:
			q.mu.Lock()
			state, ok := q.jobs[id]
			if !ok || state.job.Status != job.StatusPending {
				q.mu.Unlock()
				continue
			}
			snapshot := state.job
			q.mu.Unlock()
			return &snapshot, nil
		default:
			return nil, nil
		}
	}
}

// Get returns a snapshot of the job.
func (q *Queue) Get(jobID string) (*job.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	state, ok := q.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := state.job
	return &snapshot, nil
}

// GetByFile returns the newest job for the file, live or terminal.
func (q *Queue) GetByFile(fileID string) (*job.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id, ok := q.latest[fileID]
	if !ok {
		return nil, ErrJobNotFound
	}
	state, ok := q.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := state.job
	return &snapshot, nil
}

// LatestJobID reports the newest job id ever admitted for the file.
func (q *Queue) LatestJobID(fileID string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id, ok := q.latest[fileID]
	return id, ok
}

// AttachCancel registers the cancel function covering the job's execution
// context. Invoked by the worker before the engine call starts.
func (q *Queue) AttachCancel(jobID string, cancel context.CancelFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if state, ok := q.jobs[jobID]; ok {
		state.cancel = cancel
	}
}

// MarkAnalyzing transitions the job to analyzing.
func (q *Queue) MarkAnalyzing(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	state, ok := q.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	next, err := state.job.Status.TransitionTo(job.StatusAnalyzing)
	if err != nil {
		return fmt.Errorf("%s -> analyzing: %w", state.job.Status, err)
	}
	now := time.Now().UTC()
	state.job.Status = next
	state.job.StartedAt = &now
	state.job.Attempts++
	q.publishLocked(state, "")
	return nil
}

// ReportProgress records progress for an analyzing job. Values are clamped
// to 0-100; regressions are ignored so observed progress never decreases.
func (q *Queue) ReportProgress(jobID string, progress int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	state, ok := q.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if state.job.Status != job.StatusAnalyzing {
		return fmt.Errorf("progress on %s job: %w", state.job.Status, job.ErrInvalidTransition)
	}
	if progress > 100 {
		progress = 100
	}
	if progress <= state.job.Progress {
		return nil
	}
	state.job.Progress = progress
	q.publishLocked(state, "")
	return nil
}

// MarkCompleted transitions the job to its completed terminal state.
func (q *Queue) MarkCompleted(jobID string) error {
	return q.finish(jobID, job.StatusCompleted, nil, "")
}

// MarkFailed transitions the job to failed, recording the cause.
func (q *Queue) MarkFailed(jobID string, cause error, msg string) error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return q.finish(jobID, job.StatusFailed, cause, msg)
}

// Cancel requests cancellation. Pending jobs fail immediately; analyzing
// jobs are cancelled cooperatively through their execution context and
// reach failed once the adapter observes the cancellation.
func (q *Queue) Cancel(jobID string) error {
	q.mu.Lock()
	state, ok := q.jobs[jobID]
	if !ok {
		q.mu.Unlock()
		return ErrJobNotFound
	}
	status := state.job.Status
	cancel := state.cancel
	q.mu.Unlock()

	switch status {
	case job.StatusPending:
		return q.finish(jobID, job.StatusFailed, job.ErrCancelled, "cancelled before analysis started")
	case job.StatusAnalyzing:
		if cancel != nil {
			cancel()
		}
		return q.finish(jobID, job.StatusFailed, job.ErrCancelled, "analysis cancelled")
	default:
		return fmt.Errorf("cancel %s job: %w", status, job.ErrInvalidTransition)
	}
}

func (q *Queue) finish(jobID string, terminal job.Status, cause error, msg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	state, ok := q.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	next, err := state.job.Status.TransitionTo(terminal)
	if err != nil {
		return fmt.Errorf("%s -> %s: %w", state.job.Status, terminal, err)
	}
	now := time.Now().UTC()
	state.job.Status = next
	state.job.FinishedAt = &now
	state.job.Error = msg
	if terminal == job.StatusCompleted {
		state.job.Progress = 100
	}
	delete(q.active, state.job.FileID)
	q.publishLocked(state, msg)

	metrics.RecordJobFinished(string(terminal), now.Sub(state.job.EnqueuedAt).Seconds())
	if cause != nil {
		q.log.Warn().Str("job_id", jobID).Str("file_id", state.job.FileID).Err(cause).Msg("job failed")
	}
	return nil
}

// watchdog fails jobs stuck past the configured deadline and expires
// terminal jobs past the retention age.
func (q *Queue) watchdog(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.WatchdogPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.sweep()
		}
	}
}

func (q *Queue) sweep() {
	now := time.Now().UTC()

	q.mu.Lock()
	var stuck []string
	var expired []string
	for id, state := range q.jobs {
		switch {
		case state.job.Status == job.StatusAnalyzing &&
			state.job.StartedAt != nil &&
			now.Sub(*state.job.StartedAt) > q.cfg.JobTimeout:
			stuck = append(stuck, id)
		case state.job.Status.IsTerminal() &&
			state.job.FinishedAt != nil &&
			q.cfg.RetentionAge > 0 &&
			now.Sub(*state.job.FinishedAt) > q.cfg.RetentionAge:
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(q.jobs, id)
	}
	q.mu.Unlock()

	for _, id := range stuck {
		q.mu.Lock()
		state, ok := q.jobs[id]
		var cancel context.CancelFunc
		if ok {
			cancel = state.cancel
		}
		q.mu.Unlock()
		if !ok {
			continue
		}
		if cancel != nil {
			cancel()
		}
		if err := q.MarkFailed(id, job.ErrTimeout, "analysis deadline exceeded"); err == nil {
			q.log.Warn().Str("job_id", id).Dur("deadline", q.cfg.JobTimeout).Msg("watchdog timed out stuck job")
		}
	}
}
