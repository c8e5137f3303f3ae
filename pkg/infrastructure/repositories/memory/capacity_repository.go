package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// CapacityRepository keeps work centers, calendars, booked operations and
// routings in memory
type CapacityRepository struct {
	mu          sync.RWMutex
	workCenters map[string]entities.WorkCenter
	calendar    map[string]map[string]entities.CalendarEntry
	operations  []entities.ScheduledOperation
	routings    map[string]entities.Routing
}

// NewCapacityRepository creates an empty capacity repository
func NewCapacityRepository() *CapacityRepository {
	return &CapacityRepository{
		workCenters: make(map[string]entities.WorkCenter),
		calendar:    make(map[string]map[string]entities.CalendarEntry),
		routings:    make(map[string]entities.Routing),
	}
}

// Verify interface compliance
var (
	_ repositories.WorkCenterRepository = (*CapacityRepository)(nil)
	_ repositories.CalendarRepository   = (*CapacityRepository)(nil)
	_ repositories.ScheduleSource       = (*CapacityRepository)(nil)
	_ repositories.RoutingRepository    = (*CapacityRepository)(nil)
)

// GetWorkCenter returns a work center
func (r *CapacityRepository) GetWorkCenter(_ context.Context, id string) (*entities.WorkCenter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wc, ok := r.workCenters[id]
	if !ok {
		return nil, &entities.WorkCenterNotFoundError{WorkCenterID: id}
	}
	return &wc, nil
}

// ListWorkCenters returns all work centers ordered by id
func (r *CapacityRepository) ListWorkCenters(_ context.Context) ([]*entities.WorkCenter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wcs := make([]*entities.WorkCenter, 0, len(r.workCenters))
	for id := range r.workCenters {
		wc := r.workCenters[id]
		wcs = append(wcs, &wc)
	}
	sort.Slice(wcs, func(i, j int) bool { return wcs[i].ID < wcs[j].ID })
	return wcs, nil
}

// SaveWorkCenter inserts or replaces a work center
func (r *CapacityRepository) SaveWorkCenter(_ context.Context, wc *entities.WorkCenter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workCenters[wc.ID] = *wc
	return nil
}

// GetEntries returns calendar entries in [from, to] ordered by date
func (r *CapacityRepository) GetEntries(_ context.Context, workCenterID string, from, to time.Time) ([]*entities.CalendarEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	from = entities.DateOnly(from)
	to = entities.DateOnly(to)

	var entries []*entities.CalendarEntry
	for _, e := range r.calendar[workCenterID] {
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		entry := e
		entries = append(entries, &entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries, nil
}

// SaveEntries upserts calendar entries by (work center, date)
func (r *CapacityRepository) SaveEntries(_ context.Context, entries []*entities.CalendarEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		entry := *e
		entry.Date = entities.DateOnly(entry.Date)
		days, ok := r.calendar[entry.WorkCenterID]
		if !ok {
			days = make(map[string]entities.CalendarEntry)
			r.calendar[entry.WorkCenterID] = days
		}
		days[entry.Date.Format("2006-01-02")] = entry
	}
	return nil
}

// AddOperation books a work-order operation on a work center
func (r *CapacityRepository) AddOperation(op entities.ScheduledOperation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, op)
}

// GetScheduledOperations returns operations overlapping [from, to]
func (r *CapacityRepository) GetScheduledOperations(_ context.Context, workCenterID string, from, to time.Time) ([]*entities.ScheduledOperation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	from = entities.DateOnly(from)
	to = entities.DateOnly(to)

	var ops []*entities.ScheduledOperation
	for i := range r.operations {
		op := r.operations[i]
		if op.WorkCenterID != workCenterID {
			continue
		}
		if entities.DateOnly(op.PlannedEnd).Before(from) || entities.DateOnly(op.PlannedStart).After(to) {
			continue
		}
		ops = append(ops, &op)
	}
	return ops, nil
}

// SaveRouting inserts or replaces a routing
func (r *CapacityRepository) SaveRouting(routing entities.Routing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routings[routing.ProductID] = routing
}

// GetRouting returns the routing of a product or nil
func (r *CapacityRepository) GetRouting(_ context.Context, productID string) (*entities.Routing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	routing, ok := r.routings[productID]
	if !ok {
		return nil, nil
	}
	return &routing, nil
}
