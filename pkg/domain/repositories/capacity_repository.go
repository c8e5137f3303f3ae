package repositories

import (
	"context"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// WorkCenterRepository provides work center master data
type WorkCenterRepository interface {
	// GetWorkCenter returns *entities.WorkCenterNotFoundError for unknown ids
	GetWorkCenter(ctx context.Context, id string) (*entities.WorkCenter, error)
	ListWorkCenters(ctx context.Context) ([]*entities.WorkCenter, error)
	SaveWorkCenter(ctx context.Context, wc *entities.WorkCenter) error
}

// CalendarRepository stores per-day capacity calendar entries
type CalendarRepository interface {
	// GetEntries returns entries with from <= date <= to
	GetEntries(ctx context.Context, workCenterID string, from, to time.Time) ([]*entities.CalendarEntry, error)
	SaveEntries(ctx context.Context, entries []*entities.CalendarEntry) error
}

// ScheduleSource provides operations already booked on work centers
type ScheduleSource interface {
	// GetScheduledOperations returns operations overlapping [from, to]
	GetScheduledOperations(ctx context.Context, workCenterID string, from, to time.Time) ([]*entities.ScheduledOperation, error)
}

// RoutingRepository provides manufacturing routings
type RoutingRepository interface {
	// GetRouting returns nil without error when the product has no routing
	GetRouting(ctx context.Context, productID string) (*entities.Routing, error)
}
