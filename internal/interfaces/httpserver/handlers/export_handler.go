package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/draftlab/drawing-server/internal/config"
	"github.com/draftlab/drawing-server/internal/domain/analysis"
	"github.com/draftlab/drawing-server/internal/domain/export"
	"github.com/draftlab/drawing-server/internal/infrastructure/metrics"
	"github.com/draftlab/drawing-server/internal/interfaces/httpserver/responses"
)

var exportContentTypes = map[export.Format]string{
	export.FormatCSV:   "text/csv; charset=utf-8",
	export.FormatExcel: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var exportExtensions = map[export.Format]string{
	export.FormatCSV:   "csv",
	export.FormatExcel: "xlsx",
}

// ExportHandler serves tabular downloads of stored results.
type ExportHandler struct {
	cfg      *config.Config
	analysis *analysis.Service
	log      zerolog.Logger
}

func NewExportHandler(cfg *config.Config, analysisService *analysis.Service, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		cfg:      cfg,
		analysis: analysisService,
		log:      log.With().Str("component", "export-handler").Logger(),
	}
}

// Export projects all stored results into the requested format and serves
// the bytes as a file download. The same stored data always yields the
// same rows regardless of format.
func (h *ExportHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", "csv"))
	if err != nil {
		metrics.RecordExport(c.Query("format"), "error")
		responses.HandleError(c, err, "unsupported export format")
		return
	}

	opts := h.parseOptions(c)

	results, err := h.analysis.GetAll(c.Request.Context())
	if err != nil {
		metrics.RecordExport(string(format), "error")
		responses.HandleError(c, err, "load results failed")
		return
	}

	data, err := export.Project(results, format, opts)
	if err != nil {
		metrics.RecordExport(string(format), "error")
		responses.HandleError(c, err, "export failed")
		return
	}
	metrics.RecordExport(string(format), "ok")

	filename := fmt.Sprintf("analysis-results-%s.%s",
		time.Now().UTC().Format("20060102-150405"), exportExtensions[format])
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, exportContentTypes[format], data)
}

func (h *ExportHandler) parseOptions(c *gin.Context) export.Options {
	opts := export.DefaultOptions()
	opts.AllowEmpty = h.cfg.AllowEmptyExport
	opts.DateFormat = h.cfg.ExportDateFormat

	if raw, ok := c.GetQuery("include_headers"); ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			opts.IncludeHeaders = v
		}
	}
	if raw, ok := c.GetQuery("date_format"); ok && raw != "" {
		opts.DateFormat = raw
	}
	return opts
}
