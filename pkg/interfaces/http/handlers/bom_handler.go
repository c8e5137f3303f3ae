package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/explosion"
	"github.com/vsinha/mfgplan/pkg/interfaces/http/response"
)

// BOMHandler serves BOM explosions
type BOMHandler struct {
	svc    *explosion.Service
	logger *zap.Logger
}

func NewBOMHandler(svc *explosion.Service, logger *zap.Logger) *BOMHandler {
	return &BOMHandler{svc: svc, logger: logger}
}

// Explode GET /boms/:id/explosion
//
// Query: quantity (default 1), include_optional, all_levels (default true),
// max_depth, aggregate and tree. When neither aggregate nor tree is given
// single-level BOMs come back flat and aggregated, multi-level ones as a tree.
func (h *BOMHandler) Explode(c *gin.Context) {
	ctx := c.Request.Context()
	bomID := c.Param("id")

	req := explosion.Request{BOMID: bomID}
	var err error
	if req.Quantity, err = queryDecimal(c, "quantity", decimal.NewFromInt(1)); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.IncludeOptional, err = queryBool(c, "include_optional", false); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.ExplodeAllLevels, err = queryBool(c, "all_levels", true); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if raw := c.Query("max_depth"); raw != "" {
		depth, err := strconv.Atoi(raw)
		if err != nil || depth <= 0 {
			response.BadRequest(c, "max_depth must be a positive integer")
			return
		}
		req.MaxDepth = depth
	}

	_, hasAggregate := c.GetQuery("aggregate")
	_, hasTree := c.GetQuery("tree")
	if !hasAggregate && !hasTree {
		req.AsTree, req.AggregateByProduct, err = h.svc.DefaultShape(ctx, bomID)
		if err != nil {
			response.FromError(c, err)
			return
		}
	} else {
		if req.AggregateByProduct, err = queryBool(c, "aggregate", false); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if req.AsTree, err = queryBool(c, "tree", false); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.svc.Explode(ctx, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}

// Invalidate POST /boms/:id/invalidate
func (h *BOMHandler) Invalidate(c *gin.Context) {
	bomID := c.Param("id")
	if err := h.svc.Invalidate(c.Request.Context(), bomID); err != nil {
		h.logger.Error("failed to invalidate explosion cache", zap.String("bom_id", bomID), zap.Error(err))
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"bom_id": bomID, "invalidated": true})
}
