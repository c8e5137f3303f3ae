package repositories

import (
	"context"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// DemandSource provides confirmed sales demand
type DemandSource interface {
	// GetDemand returns lines due within [from, to]; an empty warehouse matches all
	GetDemand(ctx context.Context, productID, warehouseID string, from, to time.Time) ([]*entities.DemandLine, error)
}
