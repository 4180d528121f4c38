package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/draftlab/drawing-server/internal/domain/analysis"
	"github.com/draftlab/drawing-server/internal/jobqueue"
)

// Worker runs analysis jobs from the queue.
type Worker struct {
	id       int
	queue    *jobqueue.Queue
	analysis *analysis.Service
	timeout  time.Duration
	log      zerolog.Logger
	stopChan chan struct{}
}

// NewWorker creates a new analysis worker.
func NewWorker(id int, queue *jobqueue.Queue, analysisService *analysis.Service, timeout time.Duration, log zerolog.Logger) *Worker {
	return &Worker{
		id:       id,
		queue:    queue,
		analysis: analysisService,
		timeout:  timeout,
		log:      log.With().Int("worker_id", id).Str("component", "worker").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start begins processing jobs from the queue.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().Msg("worker started")

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("worker stopped by context")
			return
		case <-w.stopChan:
			w.log.Info().Msg("worker stopped")
			return
		case <-ticker.C:
			w.processNextJob(ctx)
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	close(w.stopChan)
}

func (w *Worker) processNextJob(ctx context.Context) {
	j, err := w.queue.Dequeue(ctx)
	if err != nil || j == nil {
		return
	}

	w.log.Info().
		Str("job_id", j.ID).
		Str("file_id", j.FileID).
		Msg("processing analysis job")

	// One context covers the whole job; the queue holds its cancel func so
	// user cancellation and the watchdog can interrupt the engine call.
	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	w.queue.AttachCancel(j.ID, cancel)
	defer cancel()

	if err := w.analysis.ExecuteJob(jobCtx, j); err != nil {
		w.log.Error().Err(err).Str("job_id", j.ID).Msg("job execution failed")
		return
	}

	w.log.Info().Str("job_id", j.ID).Msg("job finished")
}
