package entities

import (
	"fmt"
	"strings"
	"time"
)

// RunStatus is the lifecycle state of an MRP run
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether the run can no longer change state
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// RunOptions are the option flags of a planning run
type RunOptions struct {
	IncludeSafetyStock bool `json:"include_safety_stock"`
	RespectLeadTimes   bool `json:"respect_lead_times"`
	ConsiderWIP        bool `json:"consider_wip"`
	NetChange          bool `json:"net_change"`
}

// RunFilters restrict the products a run plans
type RunFilters struct {
	ProductIDs  []string  `json:"product_ids,omitempty"`
	CategoryIDs []string  `json:"category_ids,omitempty"`
	MakeOrBuy   MakeOrBuy `json:"make_or_buy,omitempty"`
	WarehouseID string    `json:"warehouse_id,omitempty"`
}

// Warning codes recorded on runs
const (
	WarnExplosionFailed  = "explosion_failed"
	WarnConversionFailed = "conversion_failed"
	WarnMetadataMissing  = "metadata_missing"
	WarnTruncated        = "explosion_truncated"
	WarnCapacity         = "capacity_shortfall"
	WarnNetChangeDegrade = "net_change_degraded"
)

// RunWarning is a non-fatal finding recorded on a run
type RunWarning struct {
	ProductID string `json:"product_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// MRPRun is one planning execution
type MRPRun struct {
	ID                       string       `json:"id"`
	RunCode                  string       `json:"run_code"`
	HorizonStart             time.Time    `json:"horizon_start"`
	HorizonEnd               time.Time    `json:"horizon_end"`
	Options                  RunOptions   `json:"options"`
	Filters                  RunFilters   `json:"filters"`
	Status                   RunStatus    `json:"status"`
	ProductsTotal            int          `json:"products_total"`
	ProductsProcessed        int          `json:"products_processed"`
	RecommendationsGenerated int          `json:"recommendations_generated"`
	Warnings                 []RunWarning `json:"warnings,omitempty"`
	ErrorMessage             string       `json:"error_message,omitempty"`
	CreatedBy                string       `json:"created_by,omitempty"`
	CreatedAt                time.Time    `json:"created_at"`
	StartedAt                *time.Time   `json:"started_at,omitempty"`
	CompletedAt              *time.Time   `json:"completed_at,omitempty"`
}

// NewMRPRun creates a validated pending run
func NewMRPRun(id string, horizonStart, horizonEnd time.Time, options RunOptions, filters RunFilters, now time.Time) (*MRPRun, error) {
	if id == "" {
		return nil, fmt.Errorf("run id cannot be empty")
	}
	horizonStart = DateOnly(horizonStart)
	horizonEnd = DateOnly(horizonEnd)
	if horizonEnd.Before(horizonStart) {
		return nil, fmt.Errorf("horizon end %s cannot be before horizon start %s",
			horizonEnd.Format("2006-01-02"), horizonStart.Format("2006-01-02"))
	}
	if filters.MakeOrBuy == "" {
		filters.MakeOrBuy = MakeOrBuyAll
	}

	return &MRPRun{
		ID:           id,
		RunCode:      fmt.Sprintf("MRP-%s-%s", now.Format("20060102"), shortID(id)),
		HorizonStart: horizonStart,
		HorizonEnd:   horizonEnd,
		Options:      options,
		Filters:      filters,
		Status:       RunPending,
		CreatedAt:    now,
	}, nil
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

// HorizonDays returns every day in the horizon, inclusive
func (r *MRPRun) HorizonDays() []time.Time {
	var days []time.Time
	for d := r.HorizonStart; !d.After(r.HorizonEnd); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func (r *MRPRun) transition(to RunStatus) error {
	return &InvalidTransitionError{Entity: "mrp run", ID: r.ID, From: string(r.Status), To: string(to)}
}

// Start moves pending → running
func (r *MRPRun) Start(now time.Time) error {
	if r.Status != RunPending {
		return r.transition(RunRunning)
	}
	r.Status = RunRunning
	r.StartedAt = &now
	return nil
}

// Complete moves running → completed
func (r *MRPRun) Complete(now time.Time) error {
	if r.Status != RunRunning {
		return r.transition(RunCompleted)
	}
	r.Status = RunCompleted
	r.CompletedAt = &now
	return nil
}

// Fail moves running → failed with a human-readable reason
func (r *MRPRun) Fail(reason string, now time.Time) error {
	if r.Status != RunRunning {
		return r.transition(RunFailed)
	}
	r.Status = RunFailed
	r.ErrorMessage = reason
	r.CompletedAt = &now
	return nil
}

// Cancel moves pending|running → cancelled
func (r *MRPRun) Cancel(now time.Time) error {
	if r.Status != RunPending && r.Status != RunRunning {
		return r.transition(RunCancelled)
	}
	r.Status = RunCancelled
	r.CompletedAt = &now
	return nil
}

// AddWarning records a non-fatal finding
func (r *MRPRun) AddWarning(productID, code, message string) {
	r.Warnings = append(r.Warnings, RunWarning{ProductID: productID, Code: code, Message: message})
}

// WarningSummary groups warnings by code for operators
func (r *MRPRun) WarningSummary() string {
	if len(r.Warnings) == 0 {
		return "no warnings"
	}
	counts := make(map[string]int)
	var order []string
	for _, w := range r.Warnings {
		if counts[w.Code] == 0 {
			order = append(order, w.Code)
		}
		counts[w.Code]++
	}
	parts := make([]string, 0, len(order))
	for _, code := range order {
		parts = append(parts, fmt.Sprintf("%s=%d", code, counts[code]))
	}
	return fmt.Sprintf("%d warnings (%s)", len(r.Warnings), strings.Join(parts, ", "))
}

// Clone copies the run so callers never share mutable state
func (r *MRPRun) Clone() *MRPRun {
	c := *r
	c.Warnings = append([]RunWarning(nil), r.Warnings...)
	c.Filters.ProductIDs = append([]string(nil), r.Filters.ProductIDs...)
	c.Filters.CategoryIDs = append([]string(nil), r.Filters.CategoryIDs...)
	return &c
}
