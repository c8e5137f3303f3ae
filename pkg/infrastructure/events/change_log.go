package events

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// ChangeLog answers net-change questions from the demand and stock events
// in an event store
type ChangeLog struct {
	store EventStore
}

var _ repositories.ChangeLog = (*ChangeLog)(nil)

func NewChangeLog(store EventStore) *ChangeLog {
	return &ChangeLog{store: store}
}

func (c *ChangeLog) RecordChange(_ context.Context, productID, reason string, at time.Time) error {
	if err := c.store.AppendEvent(productID, NewProductChangedEvent(productID, reason, at)); err != nil {
		return fmt.Errorf("failed to record change for %s: %w", productID, err)
	}
	return nil
}

func (c *ChangeLog) ChangedSince(_ context.Context, since time.Time) ([]string, error) {
	all, err := c.store.ReadAllEvents(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	seen := make(map[string]bool)
	for _, e := range all {
		if e.Type() != DemandChangedEvent && e.Type() != StockChangedEvent {
			continue
		}
		if !e.Timestamp().After(since) {
			continue
		}
		seen[e.StreamID()] = true
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
