package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "draftlab/drawing-server"

// GetTracer returns the tracer for the drawing service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// DrawingAttributes returns common attributes for drawing spans.
func DrawingAttributes(fileID, fileType string, size int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("drawing.id", fileID),
		attribute.String("drawing.type", fileType),
		attribute.Int64("drawing.size_bytes", size),
	}
}

// JobAttributes returns common attributes for analysis job spans.
func JobAttributes(jobID, fileID string, attempts int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("job.id", jobID),
		attribute.String("job.file_id", fileID),
		attribute.Int("job.attempts", attempts),
	}
}

// StartIngestSpan starts a span covering one drawing ingestion.
func StartIngestSpan(ctx context.Context, filename string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "drawing.ingest",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("drawing.filename", filename)),
	)
}

// StartAnalysisSpan starts a span covering one analysis job execution.
func StartAnalysisSpan(ctx context.Context, jobID, fileID string, attempts int) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "analysis.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(JobAttributes(jobID, fileID, attempts)...),
	)
}

// StartExportSpan starts a span covering one export projection.
func StartExportSpan(ctx context.Context, format string, results int) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "export.project",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("export.format", format),
			attribute.Int("export.results", results),
		),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddProgressEvent adds a progress event to a span.
func AddProgressEvent(span trace.Span, progress int) {
	span.AddEvent("progress",
		trace.WithAttributes(attribute.Int("progress.percent", progress)),
	)
}
