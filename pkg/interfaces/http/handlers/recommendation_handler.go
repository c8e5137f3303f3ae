package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/recommendation"
	"github.com/vsinha/mfgplan/pkg/interfaces/http/response"
)

// RecommendationHandler serves the recommendation lifecycle
type RecommendationHandler struct {
	ledger *recommendation.Ledger
	clock  func() time.Time
	logger *zap.Logger
}

func NewRecommendationHandler(ledger *recommendation.Ledger, clock func() time.Time, logger *zap.Logger) *RecommendationHandler {
	return &RecommendationHandler{ledger: ledger, clock: clock, logger: logger}
}

type approveRequest struct {
	ApprovedBy string `json:"approved_by" binding:"required"`
}

type rejectRequest struct {
	Notes string `json:"notes"`
}

type actionRequest struct {
	ReferenceType string `json:"reference_type" binding:"required"`
	ReferenceID   string `json:"reference_id" binding:"required"`
	Notes         string `json:"notes"`
}

type bulkApproveRequest struct {
	IDs        []string `json:"ids" binding:"required,min=1"`
	ApprovedBy string   `json:"approved_by" binding:"required"`
}

type bulkRejectRequest struct {
	IDs   []string `json:"ids" binding:"required,min=1"`
	Notes string   `json:"notes"`
}

type expireStaleRequest struct {
	// Before defaults to today
	Before string `json:"before"`
}

// Approve POST /recommendations/:id/approve
func (h *RecommendationHandler) Approve(c *gin.Context) {
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	rec, err := h.ledger.Approve(c.Request.Context(), c.Param("id"), req.ApprovedBy)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, rec)
}

// Reject POST /recommendations/:id/reject
func (h *RecommendationHandler) Reject(c *gin.Context) {
	var req rejectRequest
	// an empty body rejects without notes
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	rec, err := h.ledger.Reject(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, rec)
}

// MarkActioned POST /recommendations/:id/action
func (h *RecommendationHandler) MarkActioned(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	rec, err := h.ledger.MarkActioned(c.Request.Context(), c.Param("id"), req.ReferenceType, req.ReferenceID, req.Notes)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, rec)
}

// UpdateReference PUT /recommendations/:id/reference
func (h *RecommendationHandler) UpdateReference(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	rec, err := h.ledger.UpdateActionReference(c.Request.Context(), c.Param("id"), req.ReferenceType, req.ReferenceID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, rec)
}

// Expire POST /recommendations/:id/expire
func (h *RecommendationHandler) Expire(c *gin.Context) {
	rec, err := h.ledger.Expire(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, rec)
}

// BulkApprove POST /recommendations/bulk/approve
func (h *RecommendationHandler) BulkApprove(c *gin.Context) {
	var req bulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	result := h.ledger.BulkApprove(c.Request.Context(), req.IDs, req.ApprovedBy)
	response.Success(c, bulkView(result))
}

// BulkReject POST /recommendations/bulk/reject
func (h *RecommendationHandler) BulkReject(c *gin.Context) {
	var req bulkRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	result := h.ledger.BulkReject(c.Request.Context(), req.IDs, req.Notes)
	response.Success(c, bulkView(result))
}

// ExpireStale POST /recommendations/expire-stale
func (h *RecommendationHandler) ExpireStale(c *gin.Context) {
	var req expireStaleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	before := h.clock()
	if req.Before != "" {
		var err error
		if before, err = parseDate("before", req.Before); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	result, err := h.ledger.ExpireStale(c.Request.Context(), before)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, bulkView(result))
}

func bulkView(r recommendation.BulkResult) gin.H {
	return gin.H{
		"requested": r.Requested,
		"succeeded": r.Succeeded,
		"failed":    r.FailureMessages(),
	}
}
