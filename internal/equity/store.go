package equity

import (
	"context"
	"sync"

	"github.com/rentvest/rent2own-service/internal/models"
)

// MemoryStore is an in-process Store keeping records in a map keyed by the
// (userID, propertyID) pair. Each pair gets its own lock so payments against
// different properties never contend.
type MemoryStore struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	records map[string]models.EquityAccumulation
}

// NewMemoryStore initializes an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:   make(map[string]*sync.Mutex),
		records: make(map[string]models.EquityAccumulation),
	}
}

func pairKey(userID, propertyID string) string {
	return userID + ":" + propertyID
}

func (s *MemoryStore) pairLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Get returns a copy of the pair's record, or ErrNotFound
func (s *MemoryStore) Get(_ context.Context, userID, propertyID string) (*models.EquityAccumulation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[pairKey(userID, propertyID)]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec
	return &out, nil
}

// Mutate runs fn under the pair's lock and persists the record it returns.
// fn receives a copy, so a failed mutation leaves the stored record intact.
func (s *MemoryStore) Mutate(_ context.Context, userID, propertyID string, fn func(cur *models.EquityAccumulation) (*models.EquityAccumulation, error)) (*models.EquityAccumulation, error) {
	key := pairKey(userID, propertyID)
	l := s.pairLock(key)
	l.Lock()
	defer l.Unlock()

	var cur *models.EquityAccumulation
	s.mu.Lock()
	if rec, ok := s.records[key]; ok {
		copied := rec
		cur = &copied
	}
	s.mu.Unlock()

	updated, err := fn(cur)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.records[key] = *updated
	s.mu.Unlock()

	out := *updated
	return &out, nil
}
