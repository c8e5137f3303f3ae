package entities

import (
	"errors"
	"testing"
	"time"
)

func newTestRun(t *testing.T) *MRPRun {
	t.Helper()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	run, err := NewMRPRun("0b9c2d1e-aaaa-bbbb-cccc-000000000001", now, now.AddDate(0, 0, 13), RunOptions{}, RunFilters{}, now)
	if err != nil {
		t.Fatalf("Failed to create run: %v", err)
	}
	return run
}

func TestNewMRPRun(t *testing.T) {
	run := newTestRun(t)
	if run.Status != RunPending {
		t.Errorf("Expected pending status, got %s", run.Status)
	}
	if run.RunCode != "MRP-20250301-0B9C2D1E" {
		t.Errorf("Unexpected run code %s", run.RunCode)
	}
	if run.Filters.MakeOrBuy != MakeOrBuyAll {
		t.Errorf("Expected make-or-buy filter to default to all, got %s", run.Filters.MakeOrBuy)
	}
	if days := run.HorizonDays(); len(days) != 14 {
		t.Errorf("Expected 14 horizon days, got %d", len(days))
	}

	now := time.Now()
	if _, err := NewMRPRun("r", now, now.AddDate(0, 0, -1), RunOptions{}, RunFilters{}, now); err == nil {
		t.Error("Expected error for inverted horizon")
	}
}

func TestMRPRun_Transitions(t *testing.T) {
	now := time.Now()

	run := newTestRun(t)
	if err := run.Complete(now); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected invalid transition completing a pending run, got %v", err)
	}
	if err := run.Start(now); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := run.Start(now); err == nil {
		t.Error("Expected error starting a running run")
	}
	if err := run.Complete(now); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if err := run.Cancel(now); err == nil {
		t.Error("Expected error cancelling a completed run")
	}

	pending := newTestRun(t)
	if err := pending.Cancel(now); err != nil {
		t.Errorf("Expected pending run to be cancellable: %v", err)
	}

	failing := newTestRun(t)
	_ = failing.Start(now)
	if err := failing.Fail("cyclic product dependency: A -> B -> A", now); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	if failing.ErrorMessage == "" || failing.CompletedAt == nil {
		t.Error("Expected failed run to carry error message and completion time")
	}
}

func TestMRPRun_WarningSummary(t *testing.T) {
	run := newTestRun(t)
	if got := run.WarningSummary(); got != "no warnings" {
		t.Errorf("Unexpected summary %q", got)
	}
	run.AddWarning("A", WarnExplosionFailed, "boom")
	run.AddWarning("B", WarnExplosionFailed, "boom")
	run.AddWarning("C", WarnCapacity, "late")
	if got := run.WarningSummary(); got != "3 warnings (explosion_failed=2, capacity_shortfall=1)" {
		t.Errorf("Unexpected summary %q", got)
	}

	clone := run.Clone()
	clone.AddWarning("D", WarnTruncated, "deep")
	if len(run.Warnings) != 3 {
		t.Error("Expected clone to not share warnings")
	}
}
