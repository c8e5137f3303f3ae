package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// DemandLine is a confirmed sales-order line quantity due on a date
type DemandLine struct {
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal
	DueDate     time.Time
	SourceRef   string
}
