package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// DemandRepository provides in-memory demand storage
type DemandRepository struct {
	mu       sync.RWMutex
	demands  []entities.DemandLine
	onChange func(productID, reason string)
}

// NewDemandRepository creates a new in-memory demand repository
func NewDemandRepository() *DemandRepository {
	return &DemandRepository{
		demands: []entities.DemandLine{},
	}
}

// Verify interface compliance
var _ repositories.DemandSource = (*DemandRepository)(nil)

// OnChange registers a hook called after demand is loaded
func (r *DemandRepository) OnChange(hook func(productID, reason string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = hook
}

// LoadDemands loads demand lines into the repository
func (r *DemandRepository) LoadDemands(demands []*entities.DemandLine) error {
	r.mu.Lock()
	for _, d := range demands {
		line := *d
		line.DueDate = entities.DateOnly(line.DueDate)
		r.demands = append(r.demands, line)
	}
	hook := r.onChange
	r.mu.Unlock()

	if hook != nil {
		for _, d := range demands {
			hook(d.ProductID, "demand")
		}
	}
	return nil
}

// GetDemand returns demand due within [from, to] ordered by due date
func (r *DemandRepository) GetDemand(_ context.Context, productID, warehouseID string, from, to time.Time) ([]*entities.DemandLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	from = entities.DateOnly(from)
	to = entities.DateOnly(to)

	var lines []*entities.DemandLine
	for i := range r.demands {
		d := r.demands[i]
		if d.ProductID != productID || (warehouseID != "" && d.WarehouseID != warehouseID) {
			continue
		}
		if d.DueDate.Before(from) || d.DueDate.After(to) {
			continue
		}
		lines = append(lines, &d)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].DueDate.Before(lines[j].DueDate) })
	return lines, nil
}

// AllDemand returns every demand line, used by loaders and reports
func (r *DemandRepository) AllDemand() []*entities.DemandLine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lines := make([]*entities.DemandLine, len(r.demands))
	for i := range r.demands {
		d := r.demands[i]
		lines[i] = &d
	}
	return lines
}
