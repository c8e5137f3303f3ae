package dto

import (
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// RunProgress is the pollable view of a planning run
type RunProgress struct {
	RunID                    string             `json:"run_id"`
	RunCode                  string             `json:"run_code"`
	Status                   entities.RunStatus `json:"status"`
	ProductsTotal            int                `json:"products_total"`
	ProductsProcessed        int                `json:"products_processed"`
	PercentComplete          int                `json:"percent_complete"`
	RecommendationsGenerated int                `json:"recommendations_generated"`
	WarningCount             int                `json:"warning_count"`
	WarningSummary           string             `json:"warning_summary"`
	ErrorMessage             string             `json:"error_message,omitempty"`
	StartedAt                *time.Time         `json:"started_at,omitempty"`
	CompletedAt              *time.Time         `json:"completed_at,omitempty"`
}

// NewRunProgress summarizes run for polling clients
func NewRunProgress(run *entities.MRPRun) *RunProgress {
	p := &RunProgress{
		RunID:                    run.ID,
		RunCode:                  run.RunCode,
		Status:                   run.Status,
		ProductsTotal:            run.ProductsTotal,
		ProductsProcessed:        run.ProductsProcessed,
		RecommendationsGenerated: run.RecommendationsGenerated,
		WarningCount:             len(run.Warnings),
		WarningSummary:           run.WarningSummary(),
		ErrorMessage:             run.ErrorMessage,
		StartedAt:                run.StartedAt,
		CompletedAt:              run.CompletedAt,
	}
	switch {
	case run.Status == entities.RunCompleted:
		p.PercentComplete = 100
	case run.ProductsTotal > 0:
		p.PercentComplete = run.ProductsProcessed * 100 / run.ProductsTotal
	}
	return p
}

// RunResult is a finished run together with the recommendations it emitted
type RunResult struct {
	Run             *entities.MRPRun              `json:"run"`
	Recommendations []*entities.MRPRecommendation `json:"recommendations"`
	// CriticalPaths holds one analysis per demanded product when requested
	CriticalPaths []*entities.CriticalPathAnalysis `json:"critical_paths,omitempty"`
}

// RecommendationSummary counts recommendations by type and priority
type RecommendationSummary struct {
	Total         int                                 `json:"total"`
	ByType        map[entities.RecommendationType]int `json:"by_type"`
	ByPriority    map[entities.Priority]int           `json:"by_priority"`
	UrgentCount   int                                 `json:"urgent_count"`
	PurchaseCount int                                 `json:"purchase_count"`
	WorkCount     int                                 `json:"work_count"`
}

// Summarize builds a RecommendationSummary
func Summarize(recs []*entities.MRPRecommendation) RecommendationSummary {
	s := RecommendationSummary{
		Total:      len(recs),
		ByType:     make(map[entities.RecommendationType]int),
		ByPriority: make(map[entities.Priority]int),
	}
	for _, r := range recs {
		s.ByType[r.Type]++
		s.ByPriority[r.Priority]++
		if r.IsUrgent {
			s.UrgentCount++
		}
	}
	s.PurchaseCount = s.ByType[entities.PurchaseOrder]
	s.WorkCount = s.ByType[entities.WorkOrder]
	return s
}
