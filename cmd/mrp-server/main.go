package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/capacity"
	"github.com/vsinha/mfgplan/pkg/application/services/criticalpath"
	"github.com/vsinha/mfgplan/pkg/application/services/explosion"
	"github.com/vsinha/mfgplan/pkg/application/services/mrp"
	"github.com/vsinha/mfgplan/pkg/application/services/recommendation"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/domain/services"
	"github.com/vsinha/mfgplan/pkg/infrastructure/cache/memorystore"
	"github.com/vsinha/mfgplan/pkg/infrastructure/cache/redisstore"
	"github.com/vsinha/mfgplan/pkg/infrastructure/config"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
	"github.com/vsinha/mfgplan/pkg/infrastructure/logging"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/gormstore"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/memory"
	httpapi "github.com/vsinha/mfgplan/pkg/interfaces/http"
	"github.com/vsinha/mfgplan/pkg/interfaces/http/handlers"
)

// stores are the repositories the planning services run over
type stores struct {
	products *memory.ProductRepository
	units    *memory.UnitRepository
	stock    *memory.StockRepository
	demand   *memory.DemandRepository
	routings *memory.CapacityRepository

	boms        repositories.BOMRepository
	bomChanges  events.BOMChangeSource
	workCenters repositories.WorkCenterRepository
	calendar    repositories.CalendarRepository
	schedule    repositories.ScheduleSource
	runs        repositories.RunRepository
	recs        repositories.RecommendationRepository

	// durable is set when BOMs, capacity and runs live in postgres
	durable bool
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open stores", zap.Error(err))
	}

	if cfg.Planning.ScenarioDir != "" {
		if err := seedScenario(ctx, cfg.Planning.ScenarioDir, st); err != nil {
			logger.Fatal("Failed to seed scenario", zap.String("dir", cfg.Planning.ScenarioDir), zap.Error(err))
		}
		logger.Info("Scenario seeded", zap.String("dir", cfg.Planning.ScenarioDir))
	}

	cacheStore, err := openCacheStore(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}

	eventStore := events.NewInMemoryEventStore(logger)
	converter := services.NewUnitConverter(st.units)
	engine := explosion.NewEngineWithConfig(explosion.EngineConfig{DefaultMaxDepth: cfg.Planning.MaxDepth}, st.boms, st.products, converter, logger)
	cache := explosion.NewCache(cacheStore, explosion.CacheConfig{
		EntryTTL:     cfg.Planning.CacheTTL(),
		StructureTTL: cfg.Planning.StructureTTL,
	}, logger)
	explosions := explosion.NewService(engine, cache, logger)
	calendar := capacity.NewCalendarWithConfig(capacity.Config{SearchDays: cfg.Planning.SlotSearchDays}, st.workCenters, st.calendar, st.schedule, logger)

	if _, err := events.SubscribeCacheInvalidation(eventStore, explosions, cfg.Planning.InvalidationTimeout); err != nil {
		logger.Fatal("Failed to subscribe cache invalidation", zap.Error(err))
	}
	events.ConnectBOMChanges(eventStore, st.bomChanges, logger)
	events.ConnectProductChanges(eventStore, st.stock, nil, logger)
	events.ConnectProductChanges(eventStore, st.demand, nil, logger)

	engineConfig := mrp.DefaultEngineConfig()
	engineConfig.UrgentWindowDays = cfg.Planning.UrgentWindowDays
	engineConfig.HighWindowDays = cfg.Planning.HighWindowDays
	engineConfig.MediumWindowDays = cfg.Planning.MediumWindowDays
	engineConfig.HorizonDays = cfg.Planning.HorizonDays
	engineConfig.Concurrency = cfg.Planning.WorkerConcurrency
	engineConfig.MaxDepth = cfg.Planning.MaxDepth

	mrpService := mrp.NewMRPServiceWithConfig(engineConfig, mrp.Dependencies{
		Products:        st.products,
		BOMs:            st.boms,
		Routings:        st.routings,
		Stock:           st.stock,
		Demand:          st.demand,
		Runs:            st.runs,
		Recommendations: st.recs,
		Converter:       converter,
		Explosions:      explosions,
		ChangeLog:       events.NewChangeLog(eventStore),
		Capacity:        calendar,
		Events:          eventStore,
	}, logger)
	ledger := recommendation.NewLedger(st.recs, eventStore, logger)

	paths := criticalpath.NewServiceWithConfig(criticalpath.Config{MaxDepth: cfg.Planning.MaxDepth},
		st.products, st.boms, st.routings, st.stock, converter, logger)
	h := handlers.NewHandlers(handlers.Services{
		MRP:             mrpService,
		Runs:            st.runs,
		Recommendations: st.recs,
		Explosions:      explosions,
		Capacity:        calendar,
		Ledger:          ledger,
		Paths:           paths,
	}, logger)

	server := httpapi.NewServer(cfg.Server, httpapi.NewRouter(h, logger), logger)
	logger.Info("Planning API configured",
		zap.Bool("durable", st.durable),
		zap.Int("port", cfg.Server.Port),
		zap.Int("worker_concurrency", engineConfig.Concurrency))

	if err := server.Run(ctx); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func openStores(cfg *config.Config, logger *zap.Logger) (*stores, error) {
	st := &stores{
		products: memory.NewProductRepository(0),
		units:    memory.NewStandardUnitRepository(),
		stock:    memory.NewStockRepository(),
		demand:   memory.NewDemandRepository(),
		routings: memory.NewCapacityRepository(),
	}

	if cfg.Database.Host == "" {
		boms := memory.NewBOMRepository(0)
		runs := memory.NewRunRepository()
		st.boms, st.bomChanges = boms, boms
		st.workCenters, st.calendar, st.schedule = st.routings, st.routings, st.routings
		st.runs, st.recs = runs, runs
		logger.Info("Using in-memory stores")
		return st, nil
	}

	db, err := gormstore.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	repos := gormstore.NewRepositories(db)
	st.boms, st.bomChanges = repos.BOMs, repos.BOMs
	st.workCenters, st.calendar, st.schedule = repos.Capacity, repos.Capacity, repos.Capacity
	st.runs, st.recs = repos.Runs, repos.Runs
	st.durable = true
	logger.Info("Connected to database", zap.String("host", cfg.Database.Host), zap.String("dbname", cfg.Database.DBName))
	return st, nil
}

func openCacheStore(cfg config.RedisConfig, logger *zap.Logger) (explosion.Store, error) {
	if cfg.Host == "" {
		return memorystore.New(), nil
	}
	store, err := redisstore.Connect(redisstore.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Explosion cache backed by redis", zap.String("addr", cfg.Addr()))
	return store, nil
}

// seedScenario loads a CSV scenario into the stores. BOMs and work centers
// go through the repository interfaces so postgres receives them too.
func seedScenario(ctx context.Context, dir string, st *stores) error {
	ds, err := csv.NewLoader().LoadScenario(dir)
	if err != nil {
		return err
	}

	if err := ds.Populate(ctx, csv.Target{
		Products: st.products,
		Stock:    st.stock,
		Demand:   st.demand,
	}); err != nil {
		return err
	}
	for _, routing := range ds.Routings {
		st.routings.SaveRouting(*routing)
	}

	for _, bom := range ds.BOMs {
		if err := st.boms.SaveBOM(ctx, bom); err != nil {
			return fmt.Errorf("failed to seed bom %s: %w", bom.ID, err)
		}
	}
	for _, line := range ds.BOMLines {
		if err := st.boms.SaveLine(ctx, line); err != nil {
			return fmt.Errorf("failed to seed bom line %s: %w", line.ID, err)
		}
	}
	for _, wc := range ds.WorkCenters {
		if err := st.workCenters.SaveWorkCenter(ctx, wc); err != nil {
			return fmt.Errorf("failed to seed work center %s: %w", wc.ID, err)
		}
	}
	return nil
}
