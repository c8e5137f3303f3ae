package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/mfgplan/pkg/interfaces/http/response"
)

// HealthHandler answers liveness checks
type HealthHandler struct {
	clock func() time.Time
}

func NewHealthHandler(clock func() time.Time) *HealthHandler {
	return &HealthHandler{clock: clock}
}

// HealthCheck GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok", "time": h.clock().UTC()})
}
