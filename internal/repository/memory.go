package repository

import (
	"context"
	"sort"
	"sync"

	"schedpoll/internal/domain"
	"schedpoll/pkg/errors"
)

// MemoryPollStore keeps polls in process memory. It is the default store for
// single-instance deployments and the workhorse for tests.
type MemoryPollStore struct {
	mu    sync.RWMutex
	polls map[string]domain.Poll
}

// NewMemoryPollStore creates an empty in-memory store
func NewMemoryPollStore() *MemoryPollStore {
	return &MemoryPollStore{polls: make(map[string]domain.Poll)}
}

// Create stores a new poll
func (s *MemoryPollStore) Create(ctx context.Context, state domain.Poll) (domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.polls[state.ID]; exists {
		return domain.Poll{}, errors.NewVersionConflict(state.ID)
	}
	stored := state.Clone()
	stored.Version = 1
	s.polls[state.ID] = stored
	return stored.Clone(), nil
}

// Get returns the poll or a poll_not_found error
func (s *MemoryPollStore) Get(ctx context.Context, pollID string) (domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.polls[pollID]
	if !ok {
		return domain.Poll{}, errors.NewPollNotFound(pollID)
	}
	return stored.Clone(), nil
}

// Update compare-and-sets the poll on its version field
func (s *MemoryPollStore) Update(ctx context.Context, state domain.Poll) (domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.polls[state.ID]
	if !ok {
		return domain.Poll{}, errors.NewPollNotFound(state.ID)
	}
	if stored.Version != state.Version {
		return domain.Poll{}, errors.NewVersionConflict(state.ID)
	}
	next := state.Clone()
	next.Version = state.Version + 1
	s.polls[state.ID] = next
	return next.Clone(), nil
}

// ListByGroup returns every poll of a group, newest first
func (s *MemoryPollStore) ListByGroup(ctx context.Context, groupID string) ([]domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Poll
	for _, p := range s.polls {
		if p.GroupID == groupID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListOpen returns the polls currently in the open state
func (s *MemoryPollStore) ListOpen(ctx context.Context) ([]domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Poll
	for _, p := range s.polls {
		if p.Status == domain.StatusOpen {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
