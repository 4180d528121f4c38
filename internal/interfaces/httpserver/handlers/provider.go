package handlers

import (
	"github.com/rs/zerolog"

	"github.com/draftlab/drawing-server/internal/config"
	"github.com/draftlab/drawing-server/internal/domain/analysis"
	"github.com/draftlab/drawing-server/internal/domain/drawing"
	"github.com/draftlab/drawing-server/internal/jobqueue"
)

// Provider wires HTTP handlers.
type Provider struct {
	Drawing  *DrawingHandler
	Analysis *AnalysisHandler
	Export   *ExportHandler
}

func NewProvider(
	cfg *config.Config,
	drawings *drawing.Service,
	analysisService *analysis.Service,
	queue *jobqueue.Queue,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Drawing:  NewDrawingHandler(cfg, drawings, analysisService, log),
		Analysis: NewAnalysisHandler(cfg, queue, analysisService, log),
		Export:   NewExportHandler(cfg, analysisService, log),
	}
}
