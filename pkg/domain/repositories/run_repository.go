package repositories

import (
	"context"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// RunRepository persists MRP runs
type RunRepository interface {
	SaveRun(ctx context.Context, run *entities.MRPRun) error
	// GetRun wraps entities.ErrRunNotFound for unknown ids
	GetRun(ctx context.Context, id string) (*entities.MRPRun, error)
	ListRuns(ctx context.Context) ([]*entities.MRPRun, error)
	// LastCompletedRun returns nil without error when no run has completed
	LastCompletedRun(ctx context.Context) (*entities.MRPRun, error)
	// DeleteRun also deletes every recommendation owned by the run
	DeleteRun(ctx context.Context, id string) error
}

// RecommendationFilter narrows recommendation queries; zero fields match all
type RecommendationFilter struct {
	RunID          string
	ProductID      string
	Statuses       []entities.RecommendationStatus
	RequiredBefore time.Time
}

// Matches reports whether rec passes the filter
func (f RecommendationFilter) Matches(rec *entities.MRPRecommendation) bool {
	if f.RunID != "" && rec.RunID != f.RunID {
		return false
	}
	if f.ProductID != "" && rec.ProductID != f.ProductID {
		return false
	}
	if !f.RequiredBefore.IsZero() && !rec.RequiredByDate.Before(f.RequiredBefore) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if rec.Status == s {
			return true
		}
	}
	return false
}

// RecommendationRepository persists recommendations
type RecommendationRepository interface {
	SaveRecommendations(ctx context.Context, recs []*entities.MRPRecommendation) error
	// GetRecommendation wraps entities.ErrRecommendationMissing for unknown ids
	GetRecommendation(ctx context.Context, id string) (*entities.MRPRecommendation, error)
	UpdateRecommendation(ctx context.Context, rec *entities.MRPRecommendation) error
	FindRecommendations(ctx context.Context, filter RecommendationFilter) ([]*entities.MRPRecommendation, error)
}

// ChangeLog records which products had demand, stock or structure changes
type ChangeLog interface {
	RecordChange(ctx context.Context, productID, reason string, at time.Time) error
	// ChangedSince returns distinct product ids changed strictly after since
	ChangedSince(ctx context.Context, since time.Time) ([]string, error)
}
