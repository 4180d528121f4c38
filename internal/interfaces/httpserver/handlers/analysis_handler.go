package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/draftlab/drawing-server/internal/config"
	"github.com/draftlab/drawing-server/internal/domain/analysis"
	"github.com/draftlab/drawing-server/internal/jobqueue"
	"github.com/draftlab/drawing-server/internal/interfaces/httpserver/responses"
)

const sseHeartbeatInterval = 15 * time.Second

// AnalysisHandler exposes job tracking and result endpoints.
type AnalysisHandler struct {
	cfg      *config.Config
	queue    *jobqueue.Queue
	analysis *analysis.Service
	log      zerolog.Logger
}

func NewAnalysisHandler(cfg *config.Config, queue *jobqueue.Queue, analysisService *analysis.Service, log zerolog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		cfg:      cfg,
		queue:    queue,
		analysis: analysisService,
		log:      log.With().Str("component", "analysis-handler").Logger(),
	}
}

// GetJob returns a point-in-time snapshot of one job.
func (h *AnalysisHandler) GetJob(c *gin.Context) {
	j, err := h.queue.Get(c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "job lookup failed")
		return
	}
	c.JSON(http.StatusOK, responses.NewJobResponse(j))
}

// GetJobByFile returns the newest job for a drawing, live or terminal.
func (h *AnalysisHandler) GetJobByFile(c *gin.Context) {
	j, err := h.queue.GetByFile(c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "job lookup failed")
		return
	}
	c.JSON(http.StatusOK, responses.NewJobResponse(j))
}

// StreamJobEvents streams the job's ordered event sequence over SSE. The
// full history is replayed first, so late subscribers observe the same
// sequence as early ones; the stream ends after the terminal event.
func (h *AnalysisHandler) StreamJobEvents(c *gin.Context) {
	sub, err := h.queue.Subscribe(c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "job lookup failed")
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent("job", ev)
			return !ev.Terminal()
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"ts": time.Now().UTC().Format(time.RFC3339)})
			return true
		}
	})
}

// CancelJob requests cancellation of a pending or analyzing job.
func (h *AnalysisHandler) CancelJob(c *gin.Context) {
	id := c.Param("id")
	if err := h.queue.Cancel(id); err != nil {
		responses.HandleError(c, err, "cancel failed")
		return
	}
	j, err := h.queue.Get(id)
	if err != nil {
		responses.HandleError(c, err, "job lookup failed")
		return
	}
	h.log.Info().Str("job_id", id).Msg("job cancelled")
	c.JSON(http.StatusOK, responses.NewJobResponse(j))
}

// ListResults returns every stored result in analysis order.
func (h *AnalysisHandler) ListResults(c *gin.Context) {
	results, err := h.analysis.GetAll(c.Request.Context())
	if err != nil {
		responses.HandleError(c, err, "list results failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// GetResultByFile returns the latest result for a drawing.
func (h *AnalysisHandler) GetResultByFile(c *gin.Context) {
	result, err := h.analysis.GetByFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "result lookup failed")
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateResult applies a partial edit to a stored result. Only supplied
// fields change; edited entries are validated like extracted ones.
func (h *AnalysisHandler) UpdateResult(c *gin.Context) {
	var fields analysis.UpdateFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.analysis.UpdateFields(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		responses.HandleError(c, err, "update result failed")
		return
	}
	c.JSON(http.StatusOK, result)
}
