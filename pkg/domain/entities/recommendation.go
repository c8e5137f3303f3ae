package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecommendationType is the kind of order suggested
type RecommendationType string

const (
	PurchaseOrder RecommendationType = "purchase_order"
	WorkOrder     RecommendationType = "work_order"
)

// Priority ranks a recommendation by how soon it must be acted on
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders priorities, critical first
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// RecommendationStatus is the lifecycle state of a recommendation
type RecommendationStatus string

const (
	RecommendationPending  RecommendationStatus = "pending"
	RecommendationApproved RecommendationStatus = "approved"
	RecommendationRejected RecommendationStatus = "rejected"
	RecommendationActioned RecommendationStatus = "actioned"
	RecommendationExpired  RecommendationStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed
func (s RecommendationStatus) IsTerminal() bool {
	return s == RecommendationRejected || s == RecommendationActioned || s == RecommendationExpired
}

// Valid reports whether s is a known status
func (s RecommendationStatus) Valid() bool {
	switch s {
	case RecommendationPending, RecommendationApproved, RecommendationRejected, RecommendationActioned, RecommendationExpired:
		return true
	}
	return false
}

// MRPRecommendation is one suggested purchase or work order
type MRPRecommendation struct {
	ID                string               `json:"id"`
	RunID             string               `json:"run_id"`
	ProductID         string               `json:"product_id"`
	WarehouseID       string               `json:"warehouse_id,omitempty"`
	Type              RecommendationType   `json:"recommendation_type"`
	GrossRequirement  decimal.Decimal      `json:"gross_requirement"`
	NetRequirement    decimal.Decimal      `json:"net_requirement"`
	ProjectedOnHand   decimal.Decimal      `json:"projected_on_hand"`
	SuggestedQuantity decimal.Decimal      `json:"suggested_quantity"`
	SuggestedDate     time.Time            `json:"suggested_date"`
	RequiredByDate    time.Time            `json:"required_by_date"`
	LeadTimeDays      int                  `json:"lead_time_days"`
	UnitCode          string               `json:"unit"`
	Priority          Priority             `json:"priority"`
	IsUrgent          bool                 `json:"is_urgent"`
	UrgencyReason     string               `json:"urgency_reason,omitempty"`
	Status            RecommendationStatus `json:"status"`
	Notes             string               `json:"notes,omitempty"`
	ApprovedBy        string               `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time           `json:"approved_at,omitempty"`
	ActionedAt        *time.Time           `json:"actioned_at,omitempty"`
	ReferenceType     string               `json:"reference_type,omitempty"`
	ReferenceID       string               `json:"reference_id,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

func (r *MRPRecommendation) invalid(to RecommendationStatus) error {
	return &InvalidTransitionError{Entity: "recommendation", ID: r.ID, From: string(r.Status), To: string(to)}
}

// Approve moves pending → approved
func (r *MRPRecommendation) Approve(by string, now time.Time) error {
	if r.Status != RecommendationPending {
		return r.invalid(RecommendationApproved)
	}
	r.Status = RecommendationApproved
	r.ApprovedBy = by
	r.ApprovedAt = &now
	r.UpdatedAt = now
	return nil
}

// Reject moves pending|approved → rejected
func (r *MRPRecommendation) Reject(notes string, now time.Time) error {
	if r.Status != RecommendationPending && r.Status != RecommendationApproved {
		return r.invalid(RecommendationRejected)
	}
	r.Status = RecommendationRejected
	if notes != "" {
		r.Notes = notes
	}
	r.UpdatedAt = now
	return nil
}

// MarkActioned moves approved → actioned and records the created document
func (r *MRPRecommendation) MarkActioned(referenceType, referenceID, notes string, now time.Time) error {
	if r.Status != RecommendationApproved {
		return r.invalid(RecommendationActioned)
	}
	r.Status = RecommendationActioned
	r.ReferenceType = referenceType
	r.ReferenceID = referenceID
	if notes != "" {
		r.Notes = notes
	}
	r.ActionedAt = &now
	r.UpdatedAt = now
	return nil
}

// Expire moves any non-terminal state → expired
func (r *MRPRecommendation) Expire(now time.Time) error {
	if r.Status.IsTerminal() {
		return r.invalid(RecommendationExpired)
	}
	r.Status = RecommendationExpired
	r.UpdatedAt = now
	return nil
}

// UpdateActionReference is the only change allowed after actioning
func (r *MRPRecommendation) UpdateActionReference(referenceType, referenceID string, now time.Time) error {
	if r.Status != RecommendationActioned {
		return r.invalid(RecommendationActioned)
	}
	r.ReferenceType = referenceType
	r.ReferenceID = referenceID
	r.UpdatedAt = now
	return nil
}
