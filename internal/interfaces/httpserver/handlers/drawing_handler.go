package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/draftlab/drawing-server/internal/config"
	"github.com/draftlab/drawing-server/internal/domain/analysis"
	"github.com/draftlab/drawing-server/internal/domain/drawing"
	"github.com/draftlab/drawing-server/internal/infrastructure/metrics"
	"github.com/draftlab/drawing-server/internal/interfaces/httpserver/responses"
)

// DrawingHandler exposes drawing ingestion and retrieval endpoints.
type DrawingHandler struct {
	cfg      *config.Config
	drawings *drawing.Service
	analysis *analysis.Service
	log      zerolog.Logger
}

func NewDrawingHandler(cfg *config.Config, drawings *drawing.Service, analysisService *analysis.Service, log zerolog.Logger) *DrawingHandler {
	return &DrawingHandler{
		cfg:      cfg,
		drawings: drawings,
		analysis: analysisService,
		log:      log.With().Str("component", "drawing-handler").Logger(),
	}
}

// Upload accepts a multipart drawing upload, stores it and admits an
// analysis job. Re-uploading identical content reuses the stored record;
// a live job for the file is coalesced instead of duplicated.
func (h *DrawingHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: "file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxDrawingBytes+1))
	if err != nil {
		h.log.Error().Err(err).Msg("read upload body")
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{Error: "failed to read file"})
		return
	}

	obj, deduped, err := h.drawings.Ingest(c.Request.Context(), drawing.IngestRequest{
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		metrics.RecordUpload("unknown", "error", int64(len(data)))
		responses.HandleError(c, err, "ingest failed")
		return
	}
	metrics.RecordUpload(string(obj.Type), "success", obj.Size)

	j, coalesced, err := h.analysis.Submit(c.Request.Context(), obj.ID)
	if err != nil {
		responses.HandleError(c, err, "submit analysis job failed")
		return
	}

	h.log.Info().
		Str("drawing_id", obj.ID).
		Str("job_id", j.ID).
		Bool("deduped", deduped).
		Bool("coalesced", coalesced).
		Msg("drawing accepted")

	c.JSON(http.StatusAccepted, responses.IngestResponse{
		Drawing:   responses.NewDrawingResponse(obj),
		Job:       responses.NewJobResponse(j),
		Deduped:   deduped,
		Coalesced: coalesced,
	})
}

// Get returns the stored metadata for a drawing.
func (h *DrawingHandler) Get(c *gin.Context) {
	obj, err := h.drawings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "drawing lookup failed")
		return
	}
	c.JSON(http.StatusOK, responses.NewDrawingResponse(obj))
}

// Content streams the stored drawing bytes without exposing storage URLs.
func (h *DrawingHandler) Content(c *gin.Context) {
	reader, mime, err := h.drawings.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.HandleError(c, err, "drawing download failed")
		return
	}
	defer reader.Close()

	if mime == "" {
		mime = "application/octet-stream"
	}
	c.Header("Content-Type", mime)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.log.Error().Err(err).Msg("stream error")
	}
}
