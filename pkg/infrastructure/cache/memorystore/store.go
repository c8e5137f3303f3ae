package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

type entry struct {
	result    *entities.ExplosionResult
	deps      []string
	expiresAt time.Time
}

type structureFact struct {
	multiLevel bool
	deps       []string
	expiresAt  time.Time
}

type index map[string]map[string]struct{}

func (ix index) add(dep, id string) {
	ids, ok := ix[dep]
	if !ok {
		ids = make(map[string]struct{})
		ix[dep] = ids
	}
	ids[id] = struct{}{}
}

func (ix index) remove(deps []string, id string) {
	for _, dep := range deps {
		if ids, ok := ix[dep]; ok {
			delete(ids, id)
			if len(ids) == 0 {
				delete(ix, dep)
			}
		}
	}
}

// Store is an in-process TTL map for explosion results
type Store struct {
	mu          sync.RWMutex
	entries     map[string]entry
	byDep       index
	structures  map[string]structureFact
	structByDep index
	now         func() time.Time
}

// New creates an empty store
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates a store whose expiry is decided by now
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		entries:     make(map[string]entry),
		byDep:       make(index),
		structures:  make(map[string]structureFact),
		structByDep: make(index),
		now:         now,
	}
}

// Get returns a copy of a live entry
func (s *Store) Get(_ context.Context, key string) (*entities.ExplosionResult, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		// a writer may have replaced the entry since the read lock was released
		if cur, ok := s.entries[key]; ok && s.now().After(cur.expiresAt) {
			s.removeLocked(key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.result.Clone(), true, nil
}

// Set stores a copy of result indexed under every dependency
func (s *Store) Set(_ context.Context, key string, result *entities.ExplosionResult, deps []string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
	s.entries[key] = entry{
		result:    result.Clone(),
		deps:      append([]string(nil), deps...),
		expiresAt: s.now().Add(ttl),
	}
	for _, dep := range deps {
		s.byDep.add(dep, key)
	}
	return nil
}

// DeleteDependents removes every entry and structure fact depending on dep
func (s *Store) DeleteDependents(_ context.Context, dep string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.byDep[dep] {
		s.removeLocked(key)
	}
	for bomID := range s.structByDep[dep] {
		s.removeStructureLocked(bomID)
	}
	return nil
}

func (s *Store) removeLocked(key string) {
	e, ok := s.entries[key]
	if !ok {
		return
	}
	delete(s.entries, key)
	s.byDep.remove(e.deps, key)
}

func (s *Store) removeStructureLocked(bomID string) {
	f, ok := s.structures[bomID]
	if !ok {
		return
	}
	delete(s.structures, bomID)
	s.structByDep.remove(f.deps, bomID)
}

// GetStructure returns the cached single/multi-level fact
func (s *Store) GetStructure(_ context.Context, bomID string) (bool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.structures[bomID]
	if !ok || s.now().After(f.expiresAt) {
		return false, false, nil
	}
	return f.multiLevel, true, nil
}

// SetStructure caches the single/multi-level fact indexed under deps
func (s *Store) SetStructure(_ context.Context, bomID string, multiLevel bool, deps []string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeStructureLocked(bomID)
	s.structures[bomID] = structureFact{
		multiLevel: multiLevel,
		deps:       append([]string(nil), deps...),
		expiresAt:  s.now().Add(ttl),
	}
	for _, dep := range deps {
		s.structByDep.add(dep, bomID)
	}
	return nil
}

// Len reports the number of stored explosions, expired ones included
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
