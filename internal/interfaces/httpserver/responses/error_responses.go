package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/draftlab/drawing-server/internal/domain/analysis"
	"github.com/draftlab/drawing-server/internal/domain/drawing"
	"github.com/draftlab/drawing-server/internal/domain/export"
	"github.com/draftlab/drawing-server/internal/domain/job"
	"github.com/draftlab/drawing-server/internal/jobqueue"
)

// ErrorResponse is the JSON error body returned by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HandleError maps domain errors onto HTTP status codes and aborts the
// request with a JSON body. Unknown errors become 500 with the supplied
// message only, so internals never leak to clients.
func HandleError(reqCtx *gin.Context, err error, message string) {
	status := statusFor(err)

	body := ErrorResponse{
		Error:   message,
		Message: err.Error(),
	}
	if status == http.StatusInternalServerError {
		body.Message = ""
	}
	reqCtx.AbortWithStatusJSON(status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, drawing.ErrInvalidFormat),
		errors.Is(err, analysis.ErrValidation),
		errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, drawing.ErrOversizeFile):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, drawing.ErrNotFound),
		errors.Is(err, analysis.ErrNotFound),
		errors.Is(err, jobqueue.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrStaleWrite):
		return http.StatusConflict
	case errors.Is(err, job.ErrInvalidTransition),
		errors.Is(err, job.ErrDuplicateInFlight):
		return http.StatusConflict
	case errors.Is(err, export.ErrEmptyDataset):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
