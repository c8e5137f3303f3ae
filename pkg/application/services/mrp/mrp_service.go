package mrp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/application/services/explosion"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
)

const (
	DefaultUrgentWindowDays = 3
	DefaultHighWindowDays   = 7
	DefaultMediumWindowDays = 14
	DefaultHorizonDays      = 90
	DefaultConcurrency      = 4
)

// EngineConfig holds configuration for the planning engine, resolved once
// and shared by every run
type EngineConfig struct {
	UrgentWindowDays int
	HighWindowDays   int
	MediumWindowDays int
	// HorizonDays is used when a run leaves its horizon end unset
	HorizonDays int
	// Concurrency bounds the background runs executing at once
	Concurrency int
	// MaxDepth is passed to every explosion the engine requests
	MaxDepth int
	Clock    func() time.Time
	NewID    func() string
}

// DefaultEngineConfig returns the engine defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		UrgentWindowDays: DefaultUrgentWindowDays,
		HighWindowDays:   DefaultHighWindowDays,
		MediumWindowDays: DefaultMediumWindowDays,
		HorizonDays:      DefaultHorizonDays,
		Concurrency:      DefaultConcurrency,
		MaxDepth:         explosion.DefaultMaxDepth,
	}
}

// Exploder answers BOM explosion requests
type Exploder interface {
	Explode(ctx context.Context, req explosion.Request) (*entities.ExplosionResult, error)
}

// SlotFinder finds free work-center capacity
type SlotFinder interface {
	FindNextSlot(ctx context.Context, workCenterID string, requiredHours decimal.Decimal, startFrom time.Time) (*entities.DateRange, bool, error)
}

// Dependencies are the collaborators a planning run reads and writes.
// ChangeLog, Capacity and Events are optional.
type Dependencies struct {
	Products        repositories.ProductRepository
	BOMs            repositories.BOMRepository
	Routings        repositories.RoutingRepository
	Stock           repositories.StockSource
	Demand          repositories.DemandSource
	Runs            repositories.RunRepository
	Recommendations repositories.RecommendationRepository
	Converter       explosion.Converter
	Explosions      Exploder
	ChangeLog       repositories.ChangeLog
	Capacity        SlotFinder
	Events          events.EventStore
}

// RunConfig is what a caller submits to start a run
type RunConfig struct {
	HorizonStart time.Time
	HorizonEnd   time.Time
	Options      entities.RunOptions
	Filters      entities.RunFilters
	CreatedBy    string
}

// MRPService plans net requirements and emits recommendations
type MRPService struct {
	config EngineConfig
	deps   Dependencies
	logger *zap.Logger

	// runMu serializes status checkpoints against Cancel
	runMu   sync.Mutex
	cancels map[string]context.CancelFunc

	group   *errgroup.Group
	waiting sync.WaitGroup
}

// NewMRPService creates a new MRP service with default configuration
func NewMRPService(deps Dependencies, logger *zap.Logger) *MRPService {
	return NewMRPServiceWithConfig(DefaultEngineConfig(), deps, logger)
}

// NewMRPServiceWithConfig creates a new MRP service with custom configuration
func NewMRPServiceWithConfig(config EngineConfig, deps Dependencies, logger *zap.Logger) *MRPService {
	defaults := DefaultEngineConfig()
	if config.UrgentWindowDays <= 0 {
		config.UrgentWindowDays = defaults.UrgentWindowDays
	}
	if config.HighWindowDays <= 0 {
		config.HighWindowDays = defaults.HighWindowDays
	}
	if config.MediumWindowDays <= 0 {
		config.MediumWindowDays = defaults.MediumWindowDays
	}
	if config.HorizonDays <= 0 {
		config.HorizonDays = defaults.HorizonDays
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.MaxDepth <= 0 {
		config.MaxDepth = defaults.MaxDepth
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	group := &errgroup.Group{}
	group.SetLimit(config.Concurrency)

	return &MRPService{
		config:  config,
		deps:    deps,
		logger:  logger,
		cancels: make(map[string]context.CancelFunc),
		group:   group,
	}
}

// Config returns the resolved engine configuration
func (s *MRPService) Config() EngineConfig {
	return s.config
}

// Create validates cfg and persists a pending run
func (s *MRPService) Create(ctx context.Context, cfg RunConfig) (*entities.MRPRun, error) {
	now := s.config.Clock()
	start := cfg.HorizonStart
	if start.IsZero() {
		start = now
	}
	end := cfg.HorizonEnd
	if end.IsZero() {
		end = entities.DateOnly(start).AddDate(0, 0, s.config.HorizonDays)
	}

	run, err := entities.NewMRPRun(s.config.NewID(), start, end, cfg.Options, cfg.Filters, now)
	if err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	run.CreatedBy = cfg.CreatedBy
	if err := s.deps.Runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	return run, nil
}

// Run creates and executes a run in the caller's goroutine. A run that
// fails on a cyclic product graph is returned together with the error.
func (s *MRPService) Run(ctx context.Context, cfg RunConfig) (*entities.MRPRun, error) {
	run, err := s.Create(ctx, cfg)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.track(run.ID, cancel)
	defer s.untrack(run.ID)

	err = s.Execute(runCtx, run)
	return run, err
}

// Submit persists a pending run and hands it to the background pool
func (s *MRPService) Submit(ctx context.Context, cfg RunConfig) (*entities.MRPRun, error) {
	run, err := s.Create(ctx, cfg)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.track(run.ID, cancel)

	background := run.Clone()
	task := func() error {
		defer s.untrack(background.ID)
		if err := s.Execute(runCtx, background); err != nil {
			s.logger.Warn("background mrp run ended with error",
				zap.String("run_id", background.ID),
				zap.Error(err))
		}
		return nil
	}

	if !s.group.TryGo(task) {
		// pool is full; queue without blocking the caller
		s.waiting.Add(1)
		go func() {
			defer s.waiting.Done()
			s.group.Go(task)
		}()
	}
	return run, nil
}

// Wait blocks until every submitted run has finished
func (s *MRPService) Wait() error {
	s.waiting.Wait()
	return s.group.Wait()
}

// Progress returns the persisted progress of a run
func (s *MRPService) Progress(ctx context.Context, runID string) (*dto.RunProgress, error) {
	run, err := s.deps.Runs.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return dto.NewRunProgress(run), nil
}

// Cancel marks a pending or running run cancelled; the worker stops at its
// next product boundary and keeps the recommendations already emitted
func (s *MRPService) Cancel(ctx context.Context, runID string) (*entities.MRPRun, error) {
	s.runMu.Lock()
	run, err := s.deps.Runs.GetRun(ctx, runID)
	if err != nil {
		s.runMu.Unlock()
		return nil, err
	}
	if err := run.Cancel(s.config.Clock()); err != nil {
		s.runMu.Unlock()
		return nil, err
	}
	if err := s.deps.Runs.SaveRun(ctx, run); err != nil {
		s.runMu.Unlock()
		return nil, fmt.Errorf("failed to save cancelled run: %w", err)
	}
	cancel := s.cancels[runID]
	s.runMu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.publish(run)
	s.logger.Info("mrp run cancelled", zap.String("run_id", runID))
	return run, nil
}

func (s *MRPService) track(runID string, cancel context.CancelFunc) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.cancels[runID] = cancel
}

func (s *MRPService) untrack(runID string) {
	s.runMu.Lock()
	cancel := s.cancels[runID]
	delete(s.cancels, runID)
	s.runMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Execute plans a pending run to completion. It is oblivious to whether it
// runs in the caller's goroutine or in the background pool. Cancelling ctx
// is observed between products; the product in flight always finishes.
func (s *MRPService) Execute(ctx context.Context, run *entities.MRPRun) error {
	work := context.WithoutCancel(ctx)
	started, err := s.start(work, run)
	if err != nil || !started {
		return err
	}

	logger := s.logger.With(zap.String("run_id", run.ID), zap.String("run_code", run.RunCode))
	logger.Info("mrp run started",
		zap.Time("horizon_start", run.HorizonStart),
		zap.Time("horizon_end", run.HorizonEnd))

	p := newPlanner(s, run, logger)
	order, err := p.prepare(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return s.stopCancelled(work, run)
		}
		return s.fail(work, run, err)
	}

	run.ProductsTotal = len(order)
	if cancelled, err := s.checkpoint(work, run); err != nil || cancelled {
		return err
	}

	for _, productID := range order {
		if ctx.Err() != nil {
			return s.stopCancelled(work, run)
		}

		recs := p.planProduct(work, productID)
		if len(recs) > 0 {
			if err := s.deps.Recommendations.SaveRecommendations(work, recs); err != nil {
				return s.fail(work, run, fmt.Errorf("failed to save recommendations for %s: %w", productID, err))
			}
			run.RecommendationsGenerated += len(recs)
		}
		run.ProductsProcessed++

		if cancelled, err := s.checkpoint(work, run); err != nil || cancelled {
			return err
		}
	}

	if err := run.Complete(s.config.Clock()); err != nil {
		return err
	}
	if err := s.deps.Runs.SaveRun(work, run); err != nil {
		return fmt.Errorf("failed to save completed run: %w", err)
	}
	s.publish(run)

	logger.Info("mrp run completed",
		zap.Int("products", run.ProductsProcessed),
		zap.Int("recommendations", run.RecommendationsGenerated),
		zap.String("warnings", run.WarningSummary()))
	return nil
}

// start moves the run to running unless it was cancelled before pickup
func (s *MRPService) start(ctx context.Context, run *entities.MRPRun) (bool, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	persisted, err := s.deps.Runs.GetRun(ctx, run.ID)
	if err != nil {
		return false, err
	}
	if persisted.Status == entities.RunCancelled {
		*run = *persisted
		return false, nil
	}
	if err := run.Start(s.config.Clock()); err != nil {
		return false, err
	}
	if err := s.deps.Runs.SaveRun(ctx, run); err != nil {
		return false, fmt.Errorf("failed to save started run: %w", err)
	}
	s.publish(run)
	return true, nil
}

// checkpoint persists progress and reports whether the run was cancelled.
// A cancelled run keeps its persisted status; only counters are copied.
func (s *MRPService) checkpoint(ctx context.Context, run *entities.MRPRun) (bool, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	persisted, err := s.deps.Runs.GetRun(ctx, run.ID)
	if err != nil {
		return false, err
	}
	if persisted.Status == entities.RunCancelled {
		s.copyProgress(persisted, run)
		if err := s.deps.Runs.SaveRun(ctx, persisted); err != nil {
			return true, fmt.Errorf("failed to save cancelled run progress: %w", err)
		}
		*run = *persisted
		s.logger.Info("mrp run stopped after cancel",
			zap.String("run_id", run.ID),
			zap.Int("products_processed", run.ProductsProcessed))
		return true, nil
	}
	if err := s.deps.Runs.SaveRun(ctx, run); err != nil {
		return false, fmt.Errorf("failed to save run progress: %w", err)
	}
	return false, nil
}

func (s *MRPService) copyProgress(dst, src *entities.MRPRun) {
	dst.ProductsTotal = src.ProductsTotal
	dst.ProductsProcessed = src.ProductsProcessed
	dst.RecommendationsGenerated = src.RecommendationsGenerated
	dst.Warnings = append([]entities.RunWarning(nil), src.Warnings...)
}

// stopCancelled ends a run whose context was cancelled
func (s *MRPService) stopCancelled(ctx context.Context, run *entities.MRPRun) error {
	if cancelled, err := s.checkpoint(ctx, run); err != nil || cancelled {
		return err
	}
	if err := run.Cancel(s.config.Clock()); err != nil {
		return err
	}
	if err := s.deps.Runs.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save cancelled run: %w", err)
	}
	s.publish(run)
	return nil
}

func (s *MRPService) fail(ctx context.Context, run *entities.MRPRun, cause error) error {
	s.logger.Error("mrp run failed", zap.String("run_id", run.ID), zap.Error(cause))
	if err := run.Fail(cause.Error(), s.config.Clock()); err != nil {
		return err
	}
	if err := s.deps.Runs.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save failed run: %w", err)
	}
	s.publish(run)
	return cause
}

func (s *MRPService) publish(run *entities.MRPRun) {
	if s.deps.Events == nil {
		return
	}
	event := events.NewRunEvent(run, s.config.Clock())
	if event == nil {
		return
	}
	if err := s.deps.Events.AppendEvent(run.ID, event); err != nil {
		s.logger.Warn("failed to publish run event", zap.String("run_id", run.ID), zap.Error(err))
	}
}
