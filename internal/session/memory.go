package session

import (
	"context"
	"sync"

	"github.com/patient-feedback-server/internal/domain"
)

// MemoryStore is an in-process SessionStore for tests and local runs.
// TTL expiry is not simulated; tests control lifetime explicitly.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.SessionData
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]domain.SessionData)}
}

// Get returns the session marker, or (nil, nil) when absent.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*domain.SessionData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &data, nil
}

// Save writes the session marker.
func (s *MemoryStore) Save(_ context.Context, sessionID string, data *domain.SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = *data
	return nil
}

// Delete removes the session marker.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
