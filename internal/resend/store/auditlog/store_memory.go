package auditlog

import (
	"context"
	"sync"

	"remail/internal/resend/models"
)

// InMemoryStore keeps events in process memory. Used by unit tests and by
// the monitor/service tests to observe exactly what was appended.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []models.ResendEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event models.ResendEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) LoadAll(_ context.Context) ([]models.ResendEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ResendEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}
