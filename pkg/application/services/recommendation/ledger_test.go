package recommendation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/mfgplan/pkg/infrastructure/testing"
)

var now = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, statuses map[string]entities.RecommendationStatus) (*Ledger, *memory.RunRepository, *events.InMemoryEventStore) {
	t.Helper()
	repo := memory.NewRunRepository()
	var recs []*entities.MRPRecommendation
	for id, status := range statuses {
		recs = append(recs, &entities.MRPRecommendation{
			ID:                id,
			RunID:             "RUN-1",
			ProductID:         "BOLT",
			Type:              entities.PurchaseOrder,
			SuggestedQuantity: testhelpers.Qty("15.2"),
			RequiredByDate:    now.AddDate(0, 0, 10),
			Status:            status,
		})
	}
	if err := repo.SaveRecommendations(context.Background(), recs); err != nil {
		t.Fatalf("SaveRecommendations failed: %v", err)
	}
	store := events.NewInMemoryEventStoreWithClock(func() time.Time { return now }, nil)
	ledger := NewLedgerWithConfig(Config{Clock: func() time.Time { return now }}, repo, store, nil)
	return ledger, repo, store
}

func TestLedger_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    entities.RecommendationStatus
		apply   func(l *Ledger, id string) (*entities.MRPRecommendation, error)
		want    entities.RecommendationStatus
		wantErr bool
	}{
		{
			name: "approve pending",
			from: entities.RecommendationPending,
			apply: func(l *Ledger, id string) (*entities.MRPRecommendation, error) {
				return l.Approve(context.Background(), id, "planner")
			},
			want: entities.RecommendationApproved,
		},
		{
			name: "approve approved fails",
			from: entities.RecommendationApproved,
			apply: func(l *Ledger, id string) (*entities.MRPRecommendation, error) {
				return l.Approve(context.Background(), id, "planner")
			},
			want:    entities.RecommendationApproved,
			wantErr: true,
		},
		{
			name: "reject approved",
			from: entities.RecommendationApproved,
			apply: func(l *Ledger, id string) (*entities.MRPRecommendation, error) {
				return l.Reject(context.Background(), id, "supplier changed")
			},
			want: entities.RecommendationRejected,
		},
		{
			name: "reject actioned fails",
			from: entities.RecommendationActioned,
			apply: func(l *Ledger, id string) (*entities.MRPRecommendation, error) {
				return l.Reject(context.Background(), id, "too late")
			},
			want:    entities.RecommendationActioned,
			wantErr: true,
		},
		{
			name: "action approved",
			from: entities.RecommendationApproved,
			apply: func(l *Ledger, id string) (*entities.MRPRecommendation, error) {
				return l.MarkActioned(context.Background(), id, "purchase_order", "PO-7", "")
			},
			want: entities.RecommendationActioned,
		},
		{
			name: "action pending fails",
			from: entities.RecommendationPending,
			apply: func(l *Ledger, id string) (*entities.MRPRecommendation, error) {
				return l.MarkActioned(context.Background(), id, "purchase_order", "PO-7", "")
			},
			want:    entities.RecommendationPending,
			wantErr: true,
		},
		{
			name: "expire approved",
			from: entities.RecommendationApproved,
			apply: func(l *Ledger, id string) (*entities.MRPRecommendation, error) {
				return l.Expire(context.Background(), id)
			},
			want: entities.RecommendationExpired,
		},
		{
			name: "expire rejected fails",
			from: entities.RecommendationRejected,
			apply: func(l *Ledger, id string) (*entities.MRPRecommendation, error) {
				return l.Expire(context.Background(), id)
			},
			want:    entities.RecommendationRejected,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, repo, _ := seed(t, map[string]entities.RecommendationStatus{"R1": tt.from})

			_, err := tt.apply(ledger, "R1")
			if tt.wantErr {
				var invalid *entities.InvalidTransitionError
				if !errors.As(err, &invalid) {
					t.Fatalf("Expected InvalidTransitionError, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			stored, err := repo.GetRecommendation(context.Background(), "R1")
			if err != nil {
				t.Fatalf("GetRecommendation failed: %v", err)
			}
			if stored.Status != tt.want {
				t.Errorf("Expected stored status %s, got %s", tt.want, stored.Status)
			}
		})
	}
}

func TestLedger_ActionedKeepsReference(t *testing.T) {
	ctx := context.Background()
	ledger, _, store := seed(t, map[string]entities.RecommendationStatus{"R1": entities.RecommendationPending})

	if _, err := ledger.Approve(ctx, "R1", "planner"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	rec, err := ledger.MarkActioned(ctx, "R1", "purchase_order", "PO-7", "sent")
	if err != nil {
		t.Fatalf("MarkActioned failed: %v", err)
	}
	if rec.ReferenceID != "PO-7" || rec.ActionedAt == nil || rec.ApprovedBy != "planner" {
		t.Errorf("Unexpected actioned record: %+v", rec)
	}

	rec, err = ledger.UpdateActionReference(ctx, "R1", "purchase_order", "PO-8")
	if err != nil {
		t.Fatalf("UpdateActionReference failed: %v", err)
	}
	if rec.ReferenceID != "PO-8" || rec.Status != entities.RecommendationActioned {
		t.Errorf("Expected actioned record with PO-8, got %s %s", rec.Status, rec.ReferenceID)
	}

	history, err := store.ReadEvents("R1", 0)
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("Expected 3 status events, got %d", len(history))
	}
	first := history[0].Data().(events.RecommendationStatusChanged)
	if first.From != entities.RecommendationPending || first.To != entities.RecommendationApproved {
		t.Errorf("Expected pending -> approved, got %s -> %s", first.From, first.To)
	}
}

func TestLedger_BulkApproveSkipsInvalid(t *testing.T) {
	ctx := context.Background()
	ledger, repo, _ := seed(t, map[string]entities.RecommendationStatus{
		"R1": entities.RecommendationPending,
		"R2": entities.RecommendationRejected,
		"R3": entities.RecommendationPending,
		"R4": entities.RecommendationActioned,
	})

	result := ledger.BulkApprove(ctx, []string{"R1", "R2", "R3", "R4", "MISSING"}, "planner")
	if result.Requested != 5 || result.Succeeded != 2 {
		t.Errorf("Expected 2 of 5 approved, got %d of %d", result.Succeeded, result.Requested)
	}
	if len(result.Failed) != 3 {
		t.Fatalf("Expected 3 failures, got %v", result.FailureMessages())
	}
	if !errors.Is(result.Failed["R2"], entities.ErrInvalidTransition) {
		t.Errorf("Expected invalid transition for R2, got %v", result.Failed["R2"])
	}
	if !errors.Is(result.Failed["MISSING"], entities.ErrNotFound) {
		t.Errorf("Expected not found for MISSING, got %v", result.Failed["MISSING"])
	}

	for id, want := range map[string]entities.RecommendationStatus{
		"R1": entities.RecommendationApproved,
		"R2": entities.RecommendationRejected,
		"R3": entities.RecommendationApproved,
		"R4": entities.RecommendationActioned,
	} {
		rec, err := repo.GetRecommendation(ctx, id)
		if err != nil {
			t.Fatalf("GetRecommendation(%s) failed: %v", id, err)
		}
		if rec.Status != want {
			t.Errorf("%s: expected %s, got %s", id, want, rec.Status)
		}
	}
}

func TestLedger_BulkReject(t *testing.T) {
	ledger, _, _ := seed(t, map[string]entities.RecommendationStatus{
		"R1": entities.RecommendationPending,
		"R2": entities.RecommendationApproved,
		"R3": entities.RecommendationExpired,
	})

	result := ledger.BulkReject(context.Background(), []string{"R1", "R2", "R3"}, "plan superseded")
	if result.Succeeded != 2 || len(result.Failed) != 1 {
		t.Errorf("Expected 2 rejected and 1 failed, got %d and %d", result.Succeeded, len(result.Failed))
	}
	if _, ok := result.Failed["R3"]; !ok {
		t.Errorf("Expected R3 to fail, got %v", result.FailureMessages())
	}
}

func TestLedger_ExpireStale(t *testing.T) {
	ctx := context.Background()
	ledger, repo, _ := seed(t, map[string]entities.RecommendationStatus{
		"R1": entities.RecommendationPending,
		"R2": entities.RecommendationApproved,
		"R3": entities.RecommendationActioned,
	})

	// nothing is required before the cutoff yet
	result, err := ledger.ExpireStale(ctx, now)
	if err != nil {
		t.Fatalf("ExpireStale failed: %v", err)
	}
	if result.Requested != 0 {
		t.Errorf("Expected nothing stale, got %d", result.Requested)
	}

	result, err = ledger.ExpireStale(ctx, now.AddDate(0, 0, 11))
	if err != nil {
		t.Fatalf("ExpireStale failed: %v", err)
	}
	if result.Requested != 2 || result.Succeeded != 2 {
		t.Errorf("Expected 2 expired, got %d of %d", result.Succeeded, result.Requested)
	}

	actioned, err := repo.GetRecommendation(ctx, "R3")
	if err != nil {
		t.Fatalf("GetRecommendation failed: %v", err)
	}
	if actioned.Status != entities.RecommendationActioned {
		t.Errorf("Expected actioned recommendation untouched, got %s", actioned.Status)
	}
}
