package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/capacity"
	"github.com/vsinha/mfgplan/pkg/application/services/criticalpath"
	"github.com/vsinha/mfgplan/pkg/application/services/explosion"
	"github.com/vsinha/mfgplan/pkg/application/services/mrp"
	"github.com/vsinha/mfgplan/pkg/application/services/recommendation"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/services"
	"github.com/vsinha/mfgplan/pkg/infrastructure/cache/memorystore"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/memory"
)

// WorkspaceConfig describes how to load a scenario for planning
type WorkspaceConfig struct {
	ScenarioDir string
	// HorizonStart defaults to today; calendars are generated from it
	HorizonStart time.Time
	HorizonDays  int
	Clock        func() time.Time
	NewID        func() string
	Logger       *zap.Logger
}

// Workspace is one scenario loaded into memory with the planning services
// wired over it
type Workspace struct {
	Dataset  *csv.Dataset
	Products *memory.ProductRepository
	BOMs     *memory.BOMRepository
	Units    *memory.UnitRepository
	Stock    *memory.StockRepository
	Demand   *memory.DemandRepository
	Capacity *memory.CapacityRepository
	Runs     *memory.RunRepository

	Events     *events.InMemoryEventStore
	ChangeLog  *events.ChangeLog
	Explosions *explosion.Service
	Calendar   *capacity.Calendar
	MRP        *mrp.MRPService
	Ledger     *recommendation.Ledger
	Paths      *criticalpath.Service

	HorizonStart time.Time
	HorizonEnd   time.Time

	clock  func() time.Time
	logger *zap.Logger
}

// LoadWorkspace reads the scenario directory and wires the planning stack
func LoadWorkspace(ctx context.Context, cfg WorkspaceConfig) (*Workspace, error) {
	if cfg.ScenarioDir == "" {
		return nil, fmt.Errorf("scenario directory is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = mrp.DefaultHorizonDays
	}
	if cfg.HorizonStart.IsZero() {
		cfg.HorizonStart = cfg.Clock()
	}

	dataset, err := csv.NewLoader().LoadScenario(cfg.ScenarioDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario %s: %w", cfg.ScenarioDir, err)
	}

	ws := &Workspace{
		Dataset:      dataset,
		Products:     memory.NewProductRepository(len(dataset.Products)),
		BOMs:         memory.NewBOMRepository(len(dataset.BOMs)),
		Units:        memory.NewStandardUnitRepository(),
		Stock:        memory.NewStockRepository(),
		Demand:       memory.NewDemandRepository(),
		Capacity:     memory.NewCapacityRepository(),
		Runs:         memory.NewRunRepository(),
		Events:       events.NewInMemoryEventStoreWithClock(cfg.Clock, cfg.Logger),
		HorizonStart: entities.DateOnly(cfg.HorizonStart),
		clock:        cfg.Clock,
		logger:       cfg.Logger,
	}
	ws.HorizonEnd = ws.HorizonStart.AddDate(0, 0, cfg.HorizonDays-1)
	ws.ChangeLog = events.NewChangeLog(ws.Events)

	if err := dataset.Populate(ctx, csv.Target{
		Products: ws.Products,
		BOMs:     ws.BOMs,
		Stock:    ws.Stock,
		Demand:   ws.Demand,
		Capacity: ws.Capacity,
	}); err != nil {
		return nil, err
	}

	converter := services.NewUnitConverter(ws.Units)
	engine := explosion.NewEngineWithConfig(explosion.EngineConfig{Clock: cfg.Clock}, ws.BOMs, ws.Products, converter, cfg.Logger)
	cache := explosion.NewCache(memorystore.New(), explosion.CacheConfig{}, cfg.Logger)
	ws.Explosions = explosion.NewService(engine, cache, cfg.Logger)
	ws.Calendar = capacity.NewCalendarWithConfig(capacity.Config{Clock: cfg.Clock}, ws.Capacity, ws.Capacity, ws.Capacity, cfg.Logger)

	// hooks are connected after the initial load so it does not count as change
	if _, err := events.SubscribeCacheInvalidation(ws.Events, ws.Explosions, events.DefaultInvalidationTimeout); err != nil {
		return nil, fmt.Errorf("failed to subscribe cache invalidation: %w", err)
	}
	events.ConnectBOMChanges(ws.Events, ws.BOMs, cfg.Logger)
	events.ConnectProductChanges(ws.Events, ws.Stock, cfg.Clock, cfg.Logger)
	events.ConnectProductChanges(ws.Events, ws.Demand, cfg.Clock, cfg.Logger)

	for _, wc := range dataset.WorkCenters {
		days, err := ws.Calendar.Generate(ctx, wc.ID, ws.HorizonStart, ws.HorizonEnd, capacity.CalendarTemplate{})
		if err != nil {
			return nil, fmt.Errorf("failed to generate calendar for %s: %w", wc.ID, err)
		}
		cfg.Logger.Debug("calendar generated", zap.String("work_center_id", wc.ID), zap.Int("days", days))
	}

	engineConfig := mrp.DefaultEngineConfig()
	engineConfig.HorizonDays = cfg.HorizonDays
	engineConfig.Clock = cfg.Clock
	if cfg.NewID != nil {
		engineConfig.NewID = cfg.NewID
	}
	ws.MRP = mrp.NewMRPServiceWithConfig(engineConfig, mrp.Dependencies{
		Products:        ws.Products,
		BOMs:            ws.BOMs,
		Routings:        ws.Capacity,
		Stock:           ws.Stock,
		Demand:          ws.Demand,
		Runs:            ws.Runs,
		Recommendations: ws.Runs,
		Converter:       converter,
		Explosions:      ws.Explosions,
		ChangeLog:       ws.ChangeLog,
		Capacity:        ws.Calendar,
		Events:          ws.Events,
	}, cfg.Logger)
	ws.Paths = criticalpath.NewServiceWithConfig(criticalpath.Config{Clock: cfg.Clock}, ws.Products, ws.BOMs, ws.Capacity, ws.Stock, converter, cfg.Logger)
	ws.Ledger = recommendation.NewLedgerWithConfig(recommendation.Config{Clock: cfg.Clock}, ws.Runs, ws.Events, cfg.Logger)

	cfg.Logger.Info("scenario loaded",
		zap.String("dir", cfg.ScenarioDir),
		zap.Int("products", len(dataset.Products)),
		zap.Int("boms", len(dataset.BOMs)),
		zap.Int("demands", len(dataset.Demands)),
		zap.Int("work_centers", len(dataset.WorkCenters)))
	return ws, nil
}

// CriticalPaths analyzes every demanded product at its total demanded
// quantity, in product order
func (w *Workspace) CriticalPaths(ctx context.Context, topN int) ([]*entities.CriticalPathAnalysis, error) {
	totals := make(map[string]decimal.Decimal)
	for _, d := range w.Dataset.Demands {
		totals[d.ProductID] = totals[d.ProductID].Add(d.Quantity)
	}
	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	analyses := make([]*entities.CriticalPathAnalysis, 0, len(ids))
	for _, id := range ids {
		analysis, err := w.Paths.Analyze(ctx, criticalpath.Request{ProductID: id, Quantity: totals[id], TopN: topN})
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}
	return analyses, nil
}

// Plan runs MRP over the workspace horizon
func (w *Workspace) Plan(ctx context.Context, options entities.RunOptions, createdBy string) (*entities.MRPRun, error) {
	return w.MRP.Run(ctx, mrp.RunConfig{
		HorizonStart: w.HorizonStart,
		HorizonEnd:   w.HorizonEnd,
		Options:      options,
		CreatedBy:    createdBy,
	})
}
