package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/draftlab/drawing-server/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")

	group.POST("/drawings", r.handlers.Drawing.Upload)
	group.GET("/drawings/:id", r.handlers.Drawing.Get)
	group.GET("/drawings/:id/content", r.handlers.Drawing.Content)
	group.GET("/drawings/:id/job", r.handlers.Analysis.GetJobByFile)
	group.GET("/drawings/:id/result", r.handlers.Analysis.GetResultByFile)

	group.GET("/jobs/:id", r.handlers.Analysis.GetJob)
	group.GET("/jobs/:id/events", r.handlers.Analysis.StreamJobEvents)
	group.POST("/jobs/:id/cancel", r.handlers.Analysis.CancelJob)

	group.GET("/results", r.handlers.Analysis.ListResults)
	group.PATCH("/results/:id", r.handlers.Analysis.UpdateResult)
	group.GET("/results/export", r.handlers.Export.Export)
}
