package recommendation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
)

// Config holds ledger configuration
type Config struct {
	Clock func() time.Time
}

// BulkResult reports a batch transition; failed ids are skipped, not fatal
type BulkResult struct {
	Requested int              `json:"requested"`
	Succeeded int              `json:"succeeded"`
	Failed    map[string]error `json:"-"`
}

// FailureMessages renders Failed for API responses
func (r BulkResult) FailureMessages() map[string]string {
	out := make(map[string]string, len(r.Failed))
	for id, err := range r.Failed {
		out[id] = err.Error()
	}
	return out
}

// Ledger moves recommendations through their lifecycle. Invalid moves
// return *entities.InvalidTransitionError and leave the record untouched.
type Ledger struct {
	config Config
	recs   repositories.RecommendationRepository
	events events.EventStore
	logger *zap.Logger

	// mu serializes read-modify-write cycles on recommendations
	mu sync.Mutex
}

// NewLedger creates a ledger with default configuration; store may be nil
func NewLedger(recs repositories.RecommendationRepository, store events.EventStore, logger *zap.Logger) *Ledger {
	return NewLedgerWithConfig(Config{}, recs, store, logger)
}

// NewLedgerWithConfig creates a ledger with custom configuration
func NewLedgerWithConfig(config Config, recs repositories.RecommendationRepository, store events.EventStore, logger *zap.Logger) *Ledger {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{config: config, recs: recs, events: store, logger: logger}
}

// Approve moves a pending recommendation to approved
func (l *Ledger) Approve(ctx context.Context, id, by string) (*entities.MRPRecommendation, error) {
	return l.apply(ctx, id, func(rec *entities.MRPRecommendation, now time.Time) error {
		return rec.Approve(by, now)
	})
}

// Reject moves a pending or approved recommendation to rejected
func (l *Ledger) Reject(ctx context.Context, id, notes string) (*entities.MRPRecommendation, error) {
	return l.apply(ctx, id, func(rec *entities.MRPRecommendation, now time.Time) error {
		return rec.Reject(notes, now)
	})
}

// MarkActioned records the purchase or work order created from an approved
// recommendation
func (l *Ledger) MarkActioned(ctx context.Context, id, referenceType, referenceID, notes string) (*entities.MRPRecommendation, error) {
	return l.apply(ctx, id, func(rec *entities.MRPRecommendation, now time.Time) error {
		return rec.MarkActioned(referenceType, referenceID, notes, now)
	})
}

// Expire moves a non-terminal recommendation to expired
func (l *Ledger) Expire(ctx context.Context, id string) (*entities.MRPRecommendation, error) {
	return l.apply(ctx, id, func(rec *entities.MRPRecommendation, now time.Time) error {
		return rec.Expire(now)
	})
}

// UpdateActionReference corrects the document reference of an actioned
// recommendation
func (l *Ledger) UpdateActionReference(ctx context.Context, id, referenceType, referenceID string) (*entities.MRPRecommendation, error) {
	return l.apply(ctx, id, func(rec *entities.MRPRecommendation, now time.Time) error {
		return rec.UpdateActionReference(referenceType, referenceID, now)
	})
}

// BulkApprove approves every id it can
func (l *Ledger) BulkApprove(ctx context.Context, ids []string, by string) BulkResult {
	return l.bulk(ctx, ids, func(id string) error {
		_, err := l.Approve(ctx, id, by)
		return err
	})
}

// BulkReject rejects every id it can
func (l *Ledger) BulkReject(ctx context.Context, ids []string, notes string) BulkResult {
	return l.bulk(ctx, ids, func(id string) error {
		_, err := l.Reject(ctx, id, notes)
		return err
	})
}

// ExpireStale expires pending and approved recommendations required before
// the cutoff
func (l *Ledger) ExpireStale(ctx context.Context, before time.Time) (BulkResult, error) {
	stale, err := l.recs.FindRecommendations(ctx, repositories.RecommendationFilter{
		Statuses:       []entities.RecommendationStatus{entities.RecommendationPending, entities.RecommendationApproved},
		RequiredBefore: before,
	})
	if err != nil {
		return BulkResult{}, fmt.Errorf("failed to find stale recommendations: %w", err)
	}

	ids := make([]string, 0, len(stale))
	for _, rec := range stale {
		ids = append(ids, rec.ID)
	}
	result := l.bulk(ctx, ids, func(id string) error {
		_, err := l.Expire(ctx, id)
		return err
	})
	l.logger.Info("expired stale recommendations",
		zap.Time("before", before),
		zap.Int("expired", result.Succeeded),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (l *Ledger) bulk(ctx context.Context, ids []string, fn func(id string) error) BulkResult {
	result := BulkResult{Requested: len(ids), Failed: make(map[string]error)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			result.Failed[id] = err
			continue
		}
		if err := fn(id); err != nil {
			result.Failed[id] = err
			continue
		}
		result.Succeeded++
	}
	return result
}

func (l *Ledger) apply(
	ctx context.Context,
	id string,
	transition func(rec *entities.MRPRecommendation, now time.Time) error,
) (*entities.MRPRecommendation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.recs.GetRecommendation(ctx, id)
	if err != nil {
		return nil, err
	}
	from := rec.Status
	if err := transition(rec, l.config.Clock()); err != nil {
		return nil, err
	}
	if err := l.recs.UpdateRecommendation(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update recommendation %s: %w", id, err)
	}

	l.logger.Debug("recommendation transitioned",
		zap.String("recommendation_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(rec.Status)))
	if l.events != nil {
		if err := l.events.AppendEvent(rec.ID, events.NewRecommendationStatusChangedEvent(rec, from)); err != nil {
			l.logger.Warn("failed to publish recommendation event", zap.String("recommendation_id", id), zap.Error(err))
		}
	}
	return rec, nil
}
