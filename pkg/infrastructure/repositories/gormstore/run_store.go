package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// RunStore persists runs and the recommendations they own
type RunStore struct {
	db *gorm.DB
}

func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

// Verify interface compliance
var (
	_ repositories.RunRepository            = (*RunStore)(nil)
	_ repositories.RecommendationRepository = (*RunStore)(nil)
)

func (r *RunStore) SaveRun(ctx context.Context, run *entities.MRPRun) error {
	if err := r.db.WithContext(ctx).Save(newRunModel(run)).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

func (r *RunStore) GetRun(ctx context.Context, id string) (*entities.MRPRun, error) {
	var m RunModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", entities.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return m.toEntity(), nil
}

// ListRuns returns runs newest first
func (r *RunStore) ListRuns(ctx context.Context) ([]*entities.MRPRun, error) {
	var models []RunModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	runs := make([]*entities.MRPRun, len(models))
	for i := range models {
		runs[i] = models[i].toEntity()
	}
	return runs, nil
}

func (r *RunStore) LastCompletedRun(ctx context.Context) (*entities.MRPRun, error) {
	var m RunModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND completed_at IS NOT NULL", string(entities.RunCompleted)).
		Order("completed_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last completed run: %w", err)
	}
	return m.toEntity(), nil
}

// DeleteRun removes the run and its recommendations in one transaction
func (r *RunStore) DeleteRun(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&RunModel{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete run %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", entities.ErrRunNotFound, id)
		}
		if err := tx.Where("run_id = ?", id).Delete(&RecommendationModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete recommendations of run %s: %w", id, err)
		}
		return nil
	})
}

// SaveRecommendations upserts recommendations; new rows are appended after
// every stored row so reads keep insertion order
func (r *RunStore) SaveRecommendations(ctx context.Context, recs []*entities.MRPRecommendation) error {
	if len(recs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int64
		if err := tx.Model(&RecommendationModel{}).Select("COALESCE(MAX(position), 0)").Scan(&last).Error; err != nil {
			return fmt.Errorf("failed to read recommendation position: %w", err)
		}

		ids := make([]string, len(recs))
		for i, rec := range recs {
			ids[i] = rec.ID
		}
		var existing []RecommendationModel
		if err := tx.Select("id", "position").Where("id IN ?", ids).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to read existing recommendations: %w", err)
		}
		positions := make(map[string]int64, len(existing))
		for _, m := range existing {
			positions[m.ID] = m.Position
		}

		models := make([]*RecommendationModel, len(recs))
		for i, rec := range recs {
			m := newRecommendationModel(rec)
			if pos, ok := positions[rec.ID]; ok {
				m.Position = pos
			} else {
				last++
				m.Position = last
			}
			models[i] = m
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&models).Error; err != nil {
			return fmt.Errorf("failed to save recommendations: %w", err)
		}
		return nil
	})
}

func (r *RunStore) GetRecommendation(ctx context.Context, id string) (*entities.MRPRecommendation, error) {
	var m RecommendationModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", entities.ErrRecommendationMissing, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendation %s: %w", id, err)
	}
	return m.toEntity(), nil
}

func (r *RunStore) UpdateRecommendation(ctx context.Context, rec *entities.MRPRecommendation) error {
	m := newRecommendationModel(rec)
	res := r.db.WithContext(ctx).Model(&RecommendationModel{}).
		Where("id = ?", rec.ID).
		Select("*").
		Omit("id", "run_id", "position").
		Updates(m)
	if res.Error != nil {
		return fmt.Errorf("failed to update recommendation %s: %w", rec.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", entities.ErrRecommendationMissing, rec.ID)
	}
	return nil
}

// FindRecommendations returns matching recommendations in insertion order
func (r *RunStore) FindRecommendations(ctx context.Context, filter repositories.RecommendationFilter) ([]*entities.MRPRecommendation, error) {
	q := r.db.WithContext(ctx).Model(&RecommendationModel{})
	if filter.RunID != "" {
		q = q.Where("run_id = ?", filter.RunID)
	}
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	if !filter.RequiredBefore.IsZero() {
		q = q.Where("required_by_date < ?", filter.RequiredBefore)
	}

	var models []RecommendationModel
	if err := q.Order("position ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find recommendations: %w", err)
	}
	recs := make([]*entities.MRPRecommendation, len(models))
	for i := range models {
		recs[i] = models[i].toEntity()
	}
	return recs, nil
}
