package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/interfaces/http/handlers"
	"github.com/vsinha/mfgplan/pkg/interfaces/http/middleware"
)

// NewRouter wires every route under /api/v1
func NewRouter(h *handlers.Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS())

	r.GET("/healthcheck", h.Health.HealthCheck)

	v1 := r.Group("/api/v1")

	runs := v1.Group("/mrp/runs")
	{
		runs.POST("", h.MRP.CreateRun)
		runs.GET("", h.MRP.ListRuns)
		runs.GET("/:id", h.MRP.GetRun)
		runs.GET("/:id/progress", h.MRP.GetProgress)
		runs.POST("/:id/cancel", h.MRP.CancelRun)
		runs.GET("/:id/recommendations", h.MRP.ListRecommendations)
	}

	boms := v1.Group("/boms")
	{
		boms.GET("/:id/explosion", h.BOM.Explode)
		boms.POST("/:id/invalidate", h.BOM.Invalidate)
	}

	products := v1.Group("/products")
	{
		products.GET("/:id/critical-path", h.Product.CriticalPath)
	}

	workCenters := v1.Group("/work-centers")
	{
		workCenters.GET("/:id/capacity", h.WorkCenter.GetCapacity)
		workCenters.GET("/:id/next-slot", h.WorkCenter.NextSlot)
		workCenters.POST("/:id/calendar", h.WorkCenter.GenerateCalendar)
	}

	recs := v1.Group("/recommendations")
	{
		recs.POST("/bulk/approve", h.Recommendation.BulkApprove)
		recs.POST("/bulk/reject", h.Recommendation.BulkReject)
		recs.POST("/expire-stale", h.Recommendation.ExpireStale)
		recs.POST("/:id/approve", h.Recommendation.Approve)
		recs.POST("/:id/reject", h.Recommendation.Reject)
		recs.POST("/:id/action", h.Recommendation.MarkActioned)
		recs.PUT("/:id/reference", h.Recommendation.UpdateReference)
		recs.POST("/:id/expire", h.Recommendation.Expire)
	}

	return r
}
