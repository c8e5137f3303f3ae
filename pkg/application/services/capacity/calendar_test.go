package capacity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	testhelpers "github.com/vsinha/mfgplan/pkg/infrastructure/testing"
)

var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func newTestCalendar(s *testhelpers.Scenario) *Calendar {
	return NewCalendar(s.Capacity, s.Capacity, s.Capacity, nil)
}

func TestCalendar_AvailableHours(t *testing.T) {
	s := testhelpers.BuildBicycleScenario(monday)
	cal := newTestCalendar(s)
	ctx := context.Background()

	hours, err := cal.AvailableHours(ctx, "ASSEMBLY", monday, monday.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("AvailableHours failed: %v", err)
	}
	if !hours.Equal(testhelpers.Qty("40")) {
		t.Errorf("Expected 40 hours in a 5-day week, got %s", hours)
	}

	if err := s.Capacity.SaveEntries(ctx, []*entities.CalendarEntry{
		{WorkCenterID: "ASSEMBLY", Date: monday.AddDate(0, 0, 1), AvailableHours: testhelpers.Qty("8"), DayType: entities.DayTypeHoliday},
	}); err != nil {
		t.Fatalf("SaveEntries failed: %v", err)
	}
	hours, _ = cal.AvailableHours(ctx, "ASSEMBLY", monday, monday.AddDate(0, 0, 6))
	if !hours.Equal(testhelpers.Qty("32")) {
		t.Errorf("Expected holiday to remove 8 hours, got %s", hours)
	}
	hours, _ = cal.AvailableHours(ctx, "ASSEMBLY", monday.AddDate(0, 0, 1), monday.AddDate(0, 0, 1))
	if !hours.IsZero() {
		t.Errorf("Expected a holiday-only range to have zero capacity, got %s", hours)
	}

	hours, _ = cal.AvailableHours(ctx, "ASSEMBLY", monday.AddDate(0, 0, 100), monday.AddDate(0, 0, 110))
	if !hours.IsZero() {
		t.Errorf("Expected days without entries to have zero capacity, got %s", hours)
	}

	_, err = cal.AvailableHours(ctx, "PAINTSHOP", monday, monday)
	var notFound *entities.WorkCenterNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("Expected WorkCenterNotFoundError, got %v", err)
	}
}

func TestCalendar_FindNextSlot(t *testing.T) {
	s := testhelpers.BuildBicycleScenario(monday)
	s.Capacity.AddOperation(entities.ScheduledOperation{
		WorkOrderID:  "WO-1",
		WorkCenterID: "ASSEMBLY",
		Status:       entities.WorkOrderInProgress,
		PlannedStart: monday,
		PlannedEnd:   monday.AddDate(0, 0, 1),
		PlannedHours: testhelpers.Qty("12"),
	})
	s.Capacity.AddOperation(entities.ScheduledOperation{
		WorkOrderID:  "WO-0",
		WorkCenterID: "ASSEMBLY",
		Status:       entities.WorkOrderCompleted,
		PlannedStart: monday,
		PlannedEnd:   monday.AddDate(0, 0, 4),
		PlannedHours: testhelpers.Qty("40"),
	})
	cal := newTestCalendar(s)
	ctx := context.Background()

	slot, found, err := cal.FindNextSlot(ctx, "ASSEMBLY", testhelpers.Qty("20"), monday)
	if err != nil {
		t.Fatalf("FindNextSlot failed: %v", err)
	}
	if !found {
		t.Fatal("Expected slot to be found")
	}
	if !slot.Start.Equal(monday) || !slot.End.Equal(monday.AddDate(0, 0, 3)) {
		t.Errorf("Expected slot Mon-Thu, got %s - %s", slot.Start.Format("Mon 02"), slot.End.Format("Mon 02"))
	}
	if !slot.Hours.Equal(testhelpers.Qty("20")) {
		t.Errorf("Expected 20 accumulated hours, got %s", slot.Hours)
	}

	weekend := monday.AddDate(0, 0, 5)
	slot, found, _ = cal.FindNextSlot(ctx, "ASSEMBLY", testhelpers.Qty("4"), weekend)
	if !found || !slot.Start.Equal(monday.AddDate(0, 0, 7)) {
		t.Errorf("Expected slot to skip the weekend, got %+v", slot)
	}

	if _, found, _ := cal.FindNextSlot(ctx, "ASSEMBLY", testhelpers.Qty("10000"), monday); found {
		t.Error("Expected bounded search to give up")
	}
}

func TestCalendar_FindNextSlotDefaultsToClock(t *testing.T) {
	s := testhelpers.BuildBicycleScenario(monday)
	cal := NewCalendarWithConfig(Config{SearchDays: 10, Clock: func() time.Time { return monday.Add(15 * time.Hour) }},
		s.Capacity, s.Capacity, s.Capacity, nil)

	slot, found, err := cal.FindNextSlot(context.Background(), "ASSEMBLY", testhelpers.Qty("8"), time.Time{})
	if err != nil || !found {
		t.Fatalf("Expected slot, got found=%v err=%v", found, err)
	}
	if !slot.Start.Equal(monday) {
		t.Errorf("Expected search to start on the clock day, got %s", slot.Start)
	}
}

func TestCalendar_DailyBreakdown(t *testing.T) {
	s := testhelpers.BuildBicycleScenario(monday)
	s.Capacity.AddOperation(entities.ScheduledOperation{
		WorkOrderID:  "WO-1",
		WorkCenterID: "ASSEMBLY",
		Status:       entities.WorkOrderReleased,
		PlannedStart: monday,
		PlannedEnd:   monday,
		PlannedHours: testhelpers.Qty("10"),
	})
	days, err := newTestCalendar(s).DailyBreakdown(context.Background(), "ASSEMBLY", monday, monday.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("DailyBreakdown failed: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("Expected 7 days, got %d", len(days))
	}
	first := days[0]
	if !first.FreeHours.IsZero() || !first.Utilization.Equal(testhelpers.Qty("125")) {
		t.Errorf("Expected overbooked Monday with zero free hours, got %+v", first)
	}
	if days[5].DayType != entities.DayTypeWeekend || !days[5].AvailableHours.IsZero() {
		t.Errorf("Expected Saturday to be a weekend without capacity, got %+v", days[5])
	}
}

func TestGenerateCalendar(t *testing.T) {
	wc, _ := entities.NewWorkCenter("CNC", "CNC cell", testhelpers.Qty("16"))
	tpl := CalendarTemplate{
		ShiftStartMinutes: 8 * 60,
		ShiftEndMinutes:   17 * 60,
		BreakHours:        testhelpers.Qty("1"),
		Holidays:          []time.Time{monday.AddDate(0, 0, 2)},
		MaintenanceDays:   []time.Time{monday.AddDate(0, 0, 3)},
	}

	entries := GenerateCalendar(wc, monday, monday.AddDate(0, 0, 6), tpl)
	if len(entries) != 7 {
		t.Fatalf("Expected 7 entries, got %d", len(entries))
	}

	expected := []entities.DayType{
		entities.DayTypeWorking, entities.DayTypeWorking, entities.DayTypeHoliday, entities.DayTypeMaintenance,
		entities.DayTypeWorking, entities.DayTypeWeekend, entities.DayTypeWeekend,
	}
	for i, e := range entries {
		if e.DayType != expected[i] {
			t.Errorf("Day %d: expected %s, got %s", i, expected[i], e.DayType)
		}
	}
	if !entries[0].AvailableHours.Equal(testhelpers.Qty("8")) {
		t.Errorf("Expected 8 shift hours, got %s", entries[0].AvailableHours)
	}

	noShift := GenerateCalendar(wc, monday, monday, CalendarTemplate{})
	if !noShift[0].AvailableHours.Equal(testhelpers.Qty("16")) {
		t.Errorf("Expected work center capacity without a shift, got %s", noShift[0].AvailableHours)
	}
}
