package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// RunRepository stores runs and the recommendations they own
type RunRepository struct {
	mu      sync.RWMutex
	runs    map[string]*entities.MRPRun
	recs    map[string]*entities.MRPRecommendation
	recSeq  map[string]int
	nextSeq int
}

// NewRunRepository creates an empty run repository
func NewRunRepository() *RunRepository {
	return &RunRepository{
		runs:   make(map[string]*entities.MRPRun),
		recs:   make(map[string]*entities.MRPRecommendation),
		recSeq: make(map[string]int),
	}
}

// Verify interface compliance
var (
	_ repositories.RunRepository            = (*RunRepository)(nil)
	_ repositories.RecommendationRepository = (*RunRepository)(nil)
)

// SaveRun inserts or replaces a run
func (r *RunRepository) SaveRun(_ context.Context, run *entities.MRPRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run.Clone()
	return nil
}

// GetRun returns a copy of a run
func (r *RunRepository) GetRun(_ context.Context, id string) (*entities.MRPRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrRunNotFound, id)
	}
	return run.Clone(), nil
}

// ListRuns returns runs newest first
func (r *RunRepository) ListRuns(_ context.Context) ([]*entities.MRPRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runs := make([]*entities.MRPRun, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run.Clone())
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	return runs, nil
}

// LastCompletedRun returns the most recently completed run
func (r *RunRepository) LastCompletedRun(_ context.Context) (*entities.MRPRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var last *entities.MRPRun
	for _, run := range r.runs {
		if run.Status != entities.RunCompleted || run.CompletedAt == nil {
			continue
		}
		if last == nil || run.CompletedAt.After(*last.CompletedAt) {
			last = run
		}
	}
	if last == nil {
		return nil, nil
	}
	return last.Clone(), nil
}

// DeleteRun removes a run and its recommendations
func (r *RunRepository) DeleteRun(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[id]; !ok {
		return fmt.Errorf("%w: %s", entities.ErrRunNotFound, id)
	}
	delete(r.runs, id)
	for recID, rec := range r.recs {
		if rec.RunID == id {
			delete(r.recs, recID)
			delete(r.recSeq, recID)
		}
	}
	return nil
}

// SaveRecommendations inserts recommendations, keeping insertion order
func (r *RunRepository) SaveRecommendations(_ context.Context, recs []*entities.MRPRecommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		c := *rec
		if _, ok := r.recSeq[c.ID]; !ok {
			r.recSeq[c.ID] = r.nextSeq
			r.nextSeq++
		}
		r.recs[c.ID] = &c
	}
	return nil
}

// GetRecommendation returns a copy of a recommendation
func (r *RunRepository) GetRecommendation(_ context.Context, id string) (*entities.MRPRecommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entities.ErrRecommendationMissing, id)
	}
	c := *rec
	return &c, nil
}

// UpdateRecommendation replaces an existing recommendation
func (r *RunRepository) UpdateRecommendation(_ context.Context, rec *entities.MRPRecommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.recs[rec.ID]; !ok {
		return fmt.Errorf("%w: %s", entities.ErrRecommendationMissing, rec.ID)
	}
	c := *rec
	r.recs[rec.ID] = &c
	return nil
}

// FindRecommendations returns matching recommendations in insertion order
func (r *RunRepository) FindRecommendations(_ context.Context, filter repositories.RecommendationFilter) ([]*entities.MRPRecommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entities.MRPRecommendation
	for _, rec := range r.recs {
		if filter.Matches(rec) {
			c := *rec
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.recSeq[out[i].ID] < r.recSeq[out[j].ID] })
	return out, nil
}
