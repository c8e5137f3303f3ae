package capacity

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// CalendarTemplate describes how to lay out calendar entries for a period
type CalendarTemplate struct {
	ShiftStartMinutes int
	ShiftEndMinutes   int
	BreakHours        decimal.Decimal
	// WorkingDays defaults to Monday through Friday
	WorkingDays     []time.Weekday
	Holidays        []time.Time
	MaintenanceDays []time.Time
}

func (t CalendarTemplate) isWorkingDay(d time.Weekday) bool {
	days := t.WorkingDays
	if len(days) == 0 {
		days = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	}
	for _, w := range days {
		if w == d {
			return true
		}
	}
	return false
}

// GenerateCalendar produces one entry per day in [from, to]. Working days get
// shift hours minus breaks, or the work center's daily capacity when no
// shift is configured.
func GenerateCalendar(wc *entities.WorkCenter, from, to time.Time, tpl CalendarTemplate) []*entities.CalendarEntry {
	from = entities.DateOnly(from)
	to = entities.DateOnly(to)

	holidays := make(map[string]bool, len(tpl.Holidays))
	for _, h := range tpl.Holidays {
		holidays[dayKey(h)] = true
	}
	maintenance := make(map[string]bool, len(tpl.MaintenanceDays))
	for _, m := range tpl.MaintenanceDays {
		maintenance[dayKey(m)] = true
	}

	var entries []*entities.CalendarEntry
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		entry := &entities.CalendarEntry{
			WorkCenterID:      wc.ID,
			Date:              d,
			ShiftStartMinutes: tpl.ShiftStartMinutes,
			ShiftEndMinutes:   tpl.ShiftEndMinutes,
			BreakHours:        tpl.BreakHours,
			AvailableHours:    decimal.Zero,
		}
		switch {
		case holidays[dayKey(d)]:
			entry.DayType = entities.DayTypeHoliday
		case maintenance[dayKey(d)]:
			entry.DayType = entities.DayTypeMaintenance
		case !tpl.isWorkingDay(d.Weekday()):
			entry.DayType = entities.DayTypeWeekend
		default:
			entry.DayType = entities.DayTypeWorking
			if tpl.ShiftEndMinutes > tpl.ShiftStartMinutes {
				entry.AvailableHours = entry.ShiftHours()
			} else {
				entry.AvailableHours = wc.CapacityPerDay
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// Generate lays out and stores calendar entries for a work center
func (c *Calendar) Generate(ctx context.Context, workCenterID string, from, to time.Time, tpl CalendarTemplate) (int, error) {
	wc, err := c.workCenters.GetWorkCenter(ctx, workCenterID)
	if err != nil {
		return 0, err
	}
	entries := GenerateCalendar(wc, from, to, tpl)
	if err := c.entries.SaveEntries(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to save calendar for %s: %w", workCenterID, err)
	}
	return len(entries), nil
}
