package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/application/services/mrp"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/interfaces/http/response"
)

// MRPHandler serves planning runs
type MRPHandler struct {
	svc    *mrp.MRPService
	runs   repositories.RunRepository
	recs   repositories.RecommendationRepository
	logger *zap.Logger
}

func NewMRPHandler(svc *mrp.MRPService, runs repositories.RunRepository, recs repositories.RecommendationRepository, logger *zap.Logger) *MRPHandler {
	return &MRPHandler{svc: svc, runs: runs, recs: recs, logger: logger}
}

// CreateRunRequest is the body of POST /mrp/runs. Dates are YYYY-MM-DD;
// an empty horizon starts today and spans the configured horizon days.
type CreateRunRequest struct {
	HorizonStart string              `json:"horizon_start"`
	HorizonEnd   string              `json:"horizon_end"`
	Options      entities.RunOptions `json:"options"`
	Filters      entities.RunFilters `json:"filters"`
	CreatedBy    string              `json:"created_by"`
	Async        bool                `json:"async"`
}

func (r CreateRunRequest) toConfig() (mrp.RunConfig, error) {
	cfg := mrp.RunConfig{Options: r.Options, Filters: r.Filters, CreatedBy: r.CreatedBy}
	var err error
	if r.HorizonStart != "" {
		if cfg.HorizonStart, err = parseDate("horizon_start", r.HorizonStart); err != nil {
			return cfg, err
		}
	}
	if r.HorizonEnd != "" {
		if cfg.HorizonEnd, err = parseDate("horizon_end", r.HorizonEnd); err != nil {
			return cfg, err
		}
	}
	if !cfg.HorizonStart.IsZero() && !cfg.HorizonEnd.IsZero() && cfg.HorizonEnd.Before(cfg.HorizonStart) {
		return cfg, errors.New("horizon_end cannot be before horizon_start")
	}
	switch cfg.Filters.MakeOrBuy {
	case "", entities.MakeOrBuyAll, entities.MakeOrBuyMake, entities.MakeOrBuyBuy:
	default:
		return cfg, errors.New("filters.make_or_buy must be one of all, make, buy")
	}
	return cfg, nil
}

// CreateRun POST /mrp/runs
func (h *MRPHandler) CreateRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	cfg, err := req.toConfig()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.Async {
		run, err := h.svc.Submit(c.Request.Context(), cfg)
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}
		response.Accepted(c, run)
		return
	}

	run, err := h.svc.Run(c.Request.Context(), cfg)
	if err != nil {
		if run == nil {
			response.InternalError(c, err.Error())
			return
		}
		response.ErrorWithData(c, response.CodeFor(err), err.Error(), run)
		return
	}
	response.Created(c, run)
}

// ListRuns GET /mrp/runs
func (h *MRPHandler) ListRuns(c *gin.Context) {
	runs, err := h.runs.ListRuns(c.Request.Context())
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"items": runs, "total": len(runs)})
}

// GetRun GET /mrp/runs/:id
func (h *MRPHandler) GetRun(c *gin.Context) {
	run, err := h.runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, run)
}

// GetProgress GET /mrp/runs/:id/progress
func (h *MRPHandler) GetProgress(c *gin.Context) {
	progress, err := h.svc.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, progress)
}

// CancelRun POST /mrp/runs/:id/cancel
func (h *MRPHandler) CancelRun(c *gin.Context) {
	run, err := h.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, run)
}

// ListRecommendations GET /mrp/runs/:id/recommendations?status=&product_id=
func (h *MRPHandler) ListRecommendations(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("id")
	if _, err := h.runs.GetRun(ctx, runID); err != nil {
		response.FromError(c, err)
		return
	}

	filter := repositories.RecommendationFilter{RunID: runID, ProductID: c.Query("product_id")}
	for _, s := range queryList(c, "status") {
		status := entities.RecommendationStatus(s)
		if !status.Valid() {
			response.BadRequest(c, "unknown recommendation status: "+s)
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	if raw := c.Query("required_before"); raw != "" {
		before, err := parseDate("required_before", raw)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		filter.RequiredBefore = before.Add(24 * time.Hour)
	}

	recs, err := h.recs.FindRecommendations(ctx, filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"items": recs, "summary": dto.Summarize(recs)})
}
