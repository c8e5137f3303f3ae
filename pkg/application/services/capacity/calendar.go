package capacity

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// DefaultSearchDays bounds FindNextSlot
const DefaultSearchDays = 90

var hundred = decimal.NewFromInt(100)

// Config holds calendar configuration
type Config struct {
	SearchDays int
	// Clock supplies "now" when FindNextSlot gets a zero start
	Clock func() time.Time
}

// Calendar answers capacity questions for work centers
type Calendar struct {
	config      Config
	workCenters repositories.WorkCenterRepository
	entries     repositories.CalendarRepository
	schedule    repositories.ScheduleSource
	logger      *zap.Logger
}

// NewCalendar creates a calendar with default configuration
func NewCalendar(
	workCenters repositories.WorkCenterRepository,
	entries repositories.CalendarRepository,
	schedule repositories.ScheduleSource,
	logger *zap.Logger,
) *Calendar {
	return NewCalendarWithConfig(Config{SearchDays: DefaultSearchDays}, workCenters, entries, schedule, logger)
}

// NewCalendarWithConfig creates a calendar with custom configuration
func NewCalendarWithConfig(
	config Config,
	workCenters repositories.WorkCenterRepository,
	entries repositories.CalendarRepository,
	schedule repositories.ScheduleSource,
	logger *zap.Logger,
) *Calendar {
	if config.SearchDays <= 0 {
		config.SearchDays = DefaultSearchDays
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calendar{
		config:      config,
		workCenters: workCenters,
		entries:     entries,
		schedule:    schedule,
		logger:      logger,
	}
}

// AvailableHours sums effective hours over the inclusive day range. Days
// without a calendar entry contribute nothing.
func (c *Calendar) AvailableHours(ctx context.Context, workCenterID string, from, to time.Time) (decimal.Decimal, error) {
	wc, byDay, err := c.load(ctx, workCenterID, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range byDay {
		total = total.Add(e.EffectiveHours(wc))
	}
	return total, nil
}

// DailyBreakdown reports available, scheduled and free hours per day
func (c *Calendar) DailyBreakdown(ctx context.Context, workCenterID string, from, to time.Time) ([]entities.DayCapacity, error) {
	from = entities.DateOnly(from)
	to = entities.DateOnly(to)
	if to.Before(from) {
		return nil, fmt.Errorf("range end %s is before start %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	wc, byDay, err := c.load(ctx, workCenterID, from, to)
	if err != nil {
		return nil, err
	}
	ops, err := c.schedule.GetScheduledOperations(ctx, workCenterID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled operations for %s: %w", workCenterID, err)
	}

	days := make([]entities.DayCapacity, 0, entities.DaysBetween(from, to)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := entities.DayCapacity{Date: d, DayType: entities.DayTypeUndefined, AvailableHours: decimal.Zero}
		if e, ok := byDay[dayKey(d)]; ok {
			day.DayType = e.DayType
			day.AvailableHours = e.EffectiveHours(wc)
		}
		day.ScheduledHours = scheduledOn(ops, d)
		day.FreeHours = freeHours(day.AvailableHours, day.ScheduledHours)
		if day.AvailableHours.IsPositive() {
			day.Utilization = day.ScheduledHours.Mul(hundred).Div(day.AvailableHours).Round(2)
		}
		days = append(days, day)
	}
	return days, nil
}

// FindNextSlot walks forward from startFrom accumulating free hours until
// requiredHours are covered. found is false when the search window runs out.
func (c *Calendar) FindNextSlot(ctx context.Context, workCenterID string, requiredHours decimal.Decimal, startFrom time.Time) (slot *entities.DateRange, found bool, err error) {
	if startFrom.IsZero() {
		startFrom = c.config.Clock()
	}
	start := entities.DateOnly(startFrom)
	if !requiredHours.IsPositive() {
		return &entities.DateRange{Start: start, End: start, Hours: decimal.Zero}, true, nil
	}

	end := start.AddDate(0, 0, c.config.SearchDays-1)
	days, err := c.DailyBreakdown(ctx, workCenterID, start, end)
	if err != nil {
		return nil, false, err
	}

	accumulated := decimal.Zero
	var slotStart time.Time
	for _, day := range days {
		if !day.FreeHours.IsPositive() {
			continue
		}
		if slotStart.IsZero() {
			slotStart = day.Date
		}
		accumulated = accumulated.Add(day.FreeHours)
		if accumulated.GreaterThanOrEqual(requiredHours) {
			return &entities.DateRange{Start: slotStart, End: day.Date, Hours: accumulated}, true, nil
		}
	}

	c.logger.Debug("no capacity slot found",
		zap.String("work_center_id", workCenterID),
		zap.String("required_hours", requiredHours.String()),
		zap.Int("search_days", c.config.SearchDays))
	return nil, false, nil
}

func (c *Calendar) load(ctx context.Context, workCenterID string, from, to time.Time) (*entities.WorkCenter, map[string]*entities.CalendarEntry, error) {
	wc, err := c.workCenters.GetWorkCenter(ctx, workCenterID)
	if err != nil {
		return nil, nil, err
	}
	if wc == nil {
		return nil, nil, &entities.WorkCenterNotFoundError{WorkCenterID: workCenterID}
	}
	entries, err := c.entries.GetEntries(ctx, workCenterID, entities.DateOnly(from), entities.DateOnly(to))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get calendar for %s: %w", workCenterID, err)
	}
	byDay := make(map[string]*entities.CalendarEntry, len(entries))
	for _, e := range entries {
		byDay[dayKey(e.Date)] = e
	}
	return wc, byDay, nil
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func scheduledOn(ops []*entities.ScheduledOperation, day time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, op := range ops {
		total = total.Add(op.HoursOn(day))
	}
	return total
}

func freeHours(available, scheduled decimal.Decimal) decimal.Decimal {
	free := available.Sub(scheduled)
	if free.IsNegative() {
		return decimal.Zero
	}
	return free
}
