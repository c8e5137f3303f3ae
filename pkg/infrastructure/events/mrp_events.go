package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

const (
	BOMChangedEvent = "bom.changed"

	DemandChangedEvent = "demand.changed"
	StockChangedEvent  = "stock.changed"

	RunStartedEvent   = "mrp.run.started"
	RunCompletedEvent = "mrp.run.completed"
	RunFailedEvent    = "mrp.run.failed"
	RunCancelledEvent = "mrp.run.cancelled"

	RecommendationStatusChangedEvent = "recommendation.status_changed"
)

// ProductChangeEvents are the event types that mark a product for net-change planning
var ProductChangeEvents = []string{DemandChangedEvent, StockChangedEvent}

// RunEventTypes are the lifecycle events published for runs
var RunEventTypes = []string{RunStartedEvent, RunCompletedEvent, RunFailedEvent, RunCancelledEvent}

// BOMChanged carries ProductID only for header changes
type BOMChanged struct {
	BOMID     string `json:"bom_id"`
	ProductID string `json:"product_id,omitempty"`
}

type ProductChanged struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

type RunLifecycle struct {
	RunID                    string             `json:"run_id"`
	RunCode                  string             `json:"run_code"`
	Status                   entities.RunStatus `json:"status"`
	ProductsProcessed        int                `json:"products_processed"`
	RecommendationsGenerated int                `json:"recommendations_generated"`
	Warnings                 int                `json:"warnings"`
	ErrorMessage             string             `json:"error_message,omitempty"`
}

type RecommendationStatusChanged struct {
	RecommendationID  string                        `json:"recommendation_id"`
	RunID             string                        `json:"run_id"`
	ProductID         string                        `json:"product_id"`
	From              entities.RecommendationStatus `json:"from"`
	To                entities.RecommendationStatus `json:"to"`
	SuggestedQuantity decimal.Decimal               `json:"suggested_quantity"`
}

func NewBOMChangedEvent(bomID, productID string) Event {
	return NewEvent(BOMChangedEvent, bomID, BOMChanged{BOMID: bomID, ProductID: productID})
}

// NewProductChangedEvent maps a change reason onto a demand or stock event
func NewProductChangedEvent(productID, reason string, at time.Time) Event {
	eventType := StockChangedEvent
	if reason == "demand" {
		eventType = DemandChangedEvent
	}
	return NewEventAt(eventType, productID, ProductChanged{ProductID: productID, Reason: reason}, at)
}

// NewRunEvent returns the lifecycle event matching the run's status, or nil
// for pending runs
func NewRunEvent(run *entities.MRPRun, at time.Time) Event {
	var eventType string
	switch run.Status {
	case entities.RunRunning:
		eventType = RunStartedEvent
	case entities.RunCompleted:
		eventType = RunCompletedEvent
	case entities.RunFailed:
		eventType = RunFailedEvent
	case entities.RunCancelled:
		eventType = RunCancelledEvent
	default:
		return nil
	}
	return NewEventAt(eventType, run.ID, RunLifecycle{
		RunID:                    run.ID,
		RunCode:                  run.RunCode,
		Status:                   run.Status,
		ProductsProcessed:        run.ProductsProcessed,
		RecommendationsGenerated: run.RecommendationsGenerated,
		Warnings:                 len(run.Warnings),
		ErrorMessage:             run.ErrorMessage,
	}, at)
}

func NewRecommendationStatusChangedEvent(rec *entities.MRPRecommendation, from entities.RecommendationStatus) Event {
	return NewEventAt(RecommendationStatusChangedEvent, rec.ID, RecommendationStatusChanged{
		RecommendationID:  rec.ID,
		RunID:             rec.RunID,
		ProductID:         rec.ProductID,
		From:              from,
		To:                rec.Status,
		SuggestedQuantity: rec.SuggestedQuantity,
	}, rec.UpdatedAt)
}
