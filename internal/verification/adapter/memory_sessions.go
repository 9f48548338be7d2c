package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aelexs/phone-verification-service/internal/domain"
	"github.com/aelexs/phone-verification-service/internal/verification/app"
)

// Compile-time check: MemorySessionStore satisfies app.SessionStore.
var _ app.SessionStore = (*MemorySessionStore)(nil)

// MemorySessionStore is the in-process session store used by the
// development profile and tests. It honors the same contract as the
// DynamoDB store: versioned compare-and-swap updates and TTL expiry, the
// latter enforced both on read and by a background sweeper.
type MemorySessionStore struct {
	clock domain.Clock

	mu       sync.Mutex
	sessions map[string]*domain.Session

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemorySessionStore creates a store and starts its TTL sweeper.
// Callers own the store's lifecycle and must Close it.
func NewMemorySessionStore(clock domain.Clock) *MemorySessionStore {
	s := &MemorySessionStore{
		clock:    clock,
		sessions: make(map[string]*domain.Session),
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweep()
	return s
}

// Close stops the sweeper goroutine. Safe to call more than once.
func (s *MemorySessionStore) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *MemorySessionStore) sweep() {
	defer s.wg.Done()
	ticker := time.NewTicker(domain.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *MemorySessionStore) removeExpired() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
		}
	}
}

// Create allocates a new session. Identifier collisions are regenerated
// rather than surfaced.
func (s *MemorySessionStore) Create(_ context.Context, phone domain.PhoneNumber, ttl time.Duration) (*domain.Session, error) {
	now := s.clock.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	id := domain.GenerateSessionID()
	for {
		if _, exists := s.sessions[id.String()]; !exists {
			break
		}
		id = domain.GenerateSessionID()
	}

	session := &domain.Session{
		ID:        id,
		Phone:     phone,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Version:   1,
	}
	s.sessions[id.String()] = session.Clone()
	return session, nil
}

// Get returns a copy of the session, treating expired entries as absent.
func (s *MemorySessionStore) Get(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id.String()]
	if !ok || session.Expired(now) {
		return nil, fmt.Errorf("memory sessions: get %s: %w", id, domain.ErrSessionNotFound)
	}
	return session.Clone(), nil
}

// Update applies mutate under the store lock. The mutator receives a clone,
// so a mutator error never leaks partial edits. The version check mirrors
// the DynamoDB conditional write even though the lock already serializes
// writers here.
func (s *MemorySessionStore) Update(_ context.Context, id domain.SessionID, mutate func(*domain.Session) error) (*domain.Session, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[id.String()]
	if !ok || current.Expired(now) {
		return nil, fmt.Errorf("memory sessions: update %s: %w", id, domain.ErrSessionNotFound)
	}

	expected := current.Version
	clone := current.Clone()
	if err := mutate(clone); err != nil {
		return nil, err
	}
	if s.sessions[id.String()].Version != expected {
		return nil, fmt.Errorf("memory sessions: update %s: %w", id, domain.ErrConflictingUpdate)
	}
	clone.Version = expected + 1
	s.sessions[id.String()] = clone.Clone()
	return clone, nil
}
