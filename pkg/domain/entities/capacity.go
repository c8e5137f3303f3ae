package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DayType classifies a calendar day
type DayType string

const (
	DayTypeWorking     DayType = "working"
	DayTypeHoliday     DayType = "holiday"
	DayTypeMaintenance DayType = "maintenance"
	DayTypeWeekend     DayType = "weekend"
	DayTypeShutdown    DayType = "shutdown"
	// DayTypeUndefined marks a day with no calendar entry
	DayTypeUndefined   DayType = "undefined"
)

// IsAvailable reports whether capacity can be consumed on this day type
func (d DayType) IsAvailable() bool {
	return d == DayTypeWorking
}

// WorkCenter is a resource with calendar-defined capacity
type WorkCenter struct {
	ID             string
	Code           string
	Name           string
	CapacityPerDay decimal.Decimal // hours
	Efficiency     decimal.Decimal // percent
	CostPerHour    decimal.Decimal
}

// NewWorkCenter creates a validated WorkCenter at 100% efficiency
func NewWorkCenter(id, name string, capacityPerDay decimal.Decimal) (*WorkCenter, error) {
	if id == "" {
		return nil, fmt.Errorf("work center id cannot be empty")
	}
	if capacityPerDay.IsNegative() {
		return nil, fmt.Errorf("capacity per day cannot be negative, got %s", capacityPerDay)
	}
	return &WorkCenter{
		ID:             id,
		Code:           id,
		Name:           name,
		CapacityPerDay: capacityPerDay,
		Efficiency:     hundred,
	}, nil
}

// EfficiencyOrDefault treats an unset efficiency as 100%
func (w *WorkCenter) EfficiencyOrDefault() decimal.Decimal {
	if w.Efficiency.IsZero() {
		return hundred
	}
	return w.Efficiency
}

// CalendarEntry is one (work center, date) row of the capacity calendar
type CalendarEntry struct {
	WorkCenterID       string
	Date               time.Time
	ShiftStartMinutes  int
	ShiftEndMinutes    int
	BreakHours         decimal.Decimal
	AvailableHours     decimal.Decimal
	EfficiencyOverride *decimal.Decimal
	CapacityOverride   *decimal.Decimal
	DayType            DayType
	Notes              string
}

// ShiftHours is the gross shift length minus breaks, floored at zero
func (e *CalendarEntry) ShiftHours() decimal.Decimal {
	if e.ShiftEndMinutes <= e.ShiftStartMinutes {
		return decimal.Zero
	}
	hours := decimal.NewFromInt(int64(e.ShiftEndMinutes - e.ShiftStartMinutes)).Div(decimal.NewFromInt(60))
	hours = hours.Sub(e.BreakHours)
	if hours.IsNegative() {
		return decimal.Zero
	}
	return hours
}

// EffectiveHours applies day type, capacity and efficiency overrides
func (e *CalendarEntry) EffectiveHours(wc *WorkCenter) decimal.Decimal {
	if !e.DayType.IsAvailable() {
		return decimal.Zero
	}
	hours := e.AvailableHours
	if e.CapacityOverride != nil {
		hours = *e.CapacityOverride
	}
	efficiency := wc.EfficiencyOrDefault()
	if e.EfficiencyOverride != nil {
		efficiency = *e.EfficiencyOverride
	}
	return hours.Mul(efficiency).Div(hundred)
}

// DayCapacity is one day of a capacity breakdown
type DayCapacity struct {
	Date           time.Time       `json:"date"`
	DayType        DayType         `json:"day_type"`
	AvailableHours decimal.Decimal `json:"available_hours"`
	ScheduledHours decimal.Decimal `json:"scheduled_hours"`
	FreeHours      decimal.Decimal `json:"free_hours"`
	Utilization    decimal.Decimal `json:"utilization"`
}

// DateRange is an inclusive range of days with the hours it provides
type DateRange struct {
	Start time.Time       `json:"start"`
	End   time.Time       `json:"end"`
	Hours decimal.Decimal `json:"hours"`
}

// WorkOrderStatus is the status of a scheduled work order
type WorkOrderStatus string

const (
	WorkOrderPlanned    WorkOrderStatus = "planned"
	WorkOrderReleased   WorkOrderStatus = "released"
	WorkOrderInProgress WorkOrderStatus = "in_progress"
	WorkOrderCompleted  WorkOrderStatus = "completed"
	WorkOrderCancelled  WorkOrderStatus = "cancelled"
)

// IsTerminal reports whether the work order no longer consumes capacity
func (s WorkOrderStatus) IsTerminal() bool {
	return s == WorkOrderCompleted || s == WorkOrderCancelled
}

// ScheduledOperation is a work-order operation booked on a work center
type ScheduledOperation struct {
	WorkOrderID  string
	WorkCenterID string
	Status       WorkOrderStatus
	PlannedStart time.Time
	PlannedEnd   time.Time
	PlannedHours decimal.Decimal
}

// HoursOn returns the share of PlannedHours falling on day, spread evenly
// over every calendar day the operation overlaps
func (o *ScheduledOperation) HoursOn(day time.Time) decimal.Decimal {
	if o.Status.IsTerminal() {
		return decimal.Zero
	}
	start := DateOnly(o.PlannedStart)
	end := DateOnly(o.PlannedEnd)
	if end.Before(start) {
		end = start
	}
	d := DateOnly(day)
	if d.Before(start) || d.After(end) {
		return decimal.Zero
	}
	span := DaysBetween(start, end) + 1
	return o.PlannedHours.Div(decimal.NewFromInt(int64(span)))
}

// RoutingOperation is one step of a manufacturing routing
type RoutingOperation struct {
	Sequence        int
	WorkCenterID    string
	SetupHours      decimal.Decimal
	RunHoursPerUnit decimal.Decimal
}

// HoursFor returns setup plus run time for qty units
func (o RoutingOperation) HoursFor(qty decimal.Decimal) decimal.Decimal {
	return o.SetupHours.Add(o.RunHoursPerUnit.Mul(qty))
}

// Routing carries the manufacturing lead time and operations of a product
type Routing struct {
	ProductID    string
	LeadTimeDays int
	Operations   []RoutingOperation
}

// HoursByWorkCenter totals operation hours per work center for qty units
func (r *Routing) HoursByWorkCenter(qty decimal.Decimal) map[string]decimal.Decimal {
	hours := make(map[string]decimal.Decimal)
	for _, op := range r.Operations {
		hours[op.WorkCenterID] = hours[op.WorkCenterID].Add(op.HoursFor(qty))
	}
	return hours
}
