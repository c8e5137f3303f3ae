package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/criticalpath"
	"github.com/vsinha/mfgplan/pkg/interfaces/http/response"
)

// ProductHandler serves product structure analyses
type ProductHandler struct {
	svc    *criticalpath.Service
	logger *zap.Logger
}

func NewProductHandler(svc *criticalpath.Service, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{svc: svc, logger: logger}
}

// CriticalPath GET /products/:id/critical-path
//
// Query: quantity (default 1), warehouse and top (default 3).
func (h *ProductHandler) CriticalPath(c *gin.Context) {
	req := criticalpath.Request{ProductID: c.Param("id"), WarehouseID: c.Query("warehouse")}
	var err error
	if req.Quantity, err = queryDecimal(c, "quantity", decimal.NewFromInt(1)); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if raw := c.Query("top"); raw != "" {
		top, err := strconv.Atoi(raw)
		if err != nil || top <= 0 {
			response.BadRequest(c, "top must be a positive integer")
			return
		}
		req.TopN = top
	}

	analysis, err := h.svc.Analyze(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, analysis)
}
