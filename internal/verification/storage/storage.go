package storage

import (
	"sync"
	"time"

	"github.com/safetag/safetag-backend/internal/verification/domain"
)

// DecisionStore keeps recent decisions in memory so callers can fetch them
// again by ID. Entries expire after a TTL.
type DecisionStore struct {
	mu        sync.RWMutex
	decisions map[string]*domain.Decision
	ttl       time.Duration
	now       func() time.Time
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewDecisionStore creates a store and starts its cleanup loop
func NewDecisionStore(ttl time.Duration) *DecisionStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &DecisionStore{
		decisions: make(map[string]*domain.Decision),
		ttl:       ttl,
		now:       time.Now,
		stop:      make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Close stops the cleanup loop
func (s *DecisionStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Put stores a decision
func (s *DecisionStore) Put(d *domain.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[d.ID] = d
}

// Get returns a decision by ID, nil if unknown or expired
func (s *DecisionStore) Get(id string) *domain.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[id]
	if !ok || s.expired(d) {
		return nil
	}
	return d
}

// Delete removes a decision
func (s *DecisionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.decisions, id)
}

// Len returns the number of stored decisions, expired ones included until cleanup
func (s *DecisionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.decisions)
}

func (s *DecisionStore) expired(d *domain.Decision) bool {
	return d.CreatedAt.Before(s.now().Add(-s.ttl))
}

func (s *DecisionStore) cleanupLoop() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stop:
			return
		}
	}
}

func (s *DecisionStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.decisions {
		if s.expired(d) {
			delete(s.decisions, id)
		}
	}
}
