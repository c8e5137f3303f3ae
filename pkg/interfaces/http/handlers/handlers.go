package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/capacity"
	"github.com/vsinha/mfgplan/pkg/application/services/criticalpath"
	"github.com/vsinha/mfgplan/pkg/application/services/explosion"
	"github.com/vsinha/mfgplan/pkg/application/services/mrp"
	"github.com/vsinha/mfgplan/pkg/application/services/recommendation"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

const dateLayout = "2006-01-02"

// Services are the application services the handlers front
type Services struct {
	MRP             *mrp.MRPService
	Runs            repositories.RunRepository
	Recommendations repositories.RecommendationRepository
	Explosions      *explosion.Service
	Capacity        *capacity.Calendar
	Ledger          *recommendation.Ledger
	Paths           *criticalpath.Service
	// Clock resolves default dates; defaults to time.Now
	Clock func() time.Time
}

// Handlers aggregates every HTTP handler
type Handlers struct {
	MRP            *MRPHandler
	BOM            *BOMHandler
	Product        *ProductHandler
	WorkCenter     *WorkCenterHandler
	Recommendation *RecommendationHandler
	Health         *HealthHandler
}

// NewHandlers creates all handlers over svc
func NewHandlers(svc Services, logger *zap.Logger) *Handlers {
	if svc.Clock == nil {
		svc.Clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		MRP:            NewMRPHandler(svc.MRP, svc.Runs, svc.Recommendations, logger),
		BOM:            NewBOMHandler(svc.Explosions, logger),
		Product:        NewProductHandler(svc.Paths, logger),
		WorkCenter:     NewWorkCenterHandler(svc.Capacity, svc.Clock, logger),
		Recommendation: NewRecommendationHandler(svc.Ledger, svc.Clock, logger),
		Health:         NewHealthHandler(svc.Clock),
	}
}

// queryDate parses a YYYY-MM-DD query parameter, returning fallback when absent
func queryDate(c *gin.Context, name string, fallback time.Time) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return entities.DateOnly(fallback), nil
	}
	return parseDate(name, raw)
}

func parseDate(name, raw string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD form, got %q", name, raw)
	}
	return t, nil
}

// queryBool parses an optional boolean query parameter
func queryBool(c *gin.Context, name string, fallback bool) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", name, raw)
	}
	return v, nil
}

// queryDecimal parses an optional positive decimal query parameter
func queryDecimal(c *gin.Context, name string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a number, got %q", name, raw)
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be positive, got %s", name, raw)
	}
	return v, nil
}

// queryList splits a comma separated query parameter
func queryList(c *gin.Context, name string) []string {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
