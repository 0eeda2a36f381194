package history

import (
	"context"
	"sort"
	"sync"

	"warden/internal/restriction/models"
	id "warden/pkg/domain"
)

// InMemoryStore keeps ban events per account. Appends for different accounts
// only contend on the single map lock; ordering within one account comes from
// the service's per-account serialization.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.UserID][]*models.BanEvent
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.UserID][]*models.BanEvent)}
}

func (s *InMemoryStore) Append(_ context.Context, event *models.BanEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *event
	s.events[event.UserID] = append(s.events[event.UserID], &copied)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.BanEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.events[userID]
	out := make([]*models.BanEvent, 0, len(stored))
	for _, event := range stored {
		copied := *event
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ImposedAt.Equal(out[j].ImposedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].ImposedAt.After(out[j].ImposedAt)
	})
	return out, nil
}
