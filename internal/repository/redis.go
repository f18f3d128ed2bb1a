package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"schedpoll/internal/domain"
	"schedpoll/pkg/errors"
	"schedpoll/pkg/redis"
)

// RedisPollStore persists serialized polls in Redis for deployments without
// Postgres. Besides the poll payload it maintains a per-group index set and
// a set of open poll ids for the expiry sweeper.
type RedisPollStore struct {
	client *redis.Client
}

// NewRedisPollStore creates a Redis-backed poll store
func NewRedisPollStore(client *redis.Client) *RedisPollStore {
	return &RedisPollStore{client: client}
}

// Create stores a new poll
func (s *RedisPollStore) Create(ctx context.Context, state domain.Poll) (domain.Poll, error) {
	stored := state.Clone()
	stored.Version = 1

	payload, err := json.Marshal(stored)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("failed to marshal poll: %w", err)
	}

	key := s.client.KeyBuilder.KeyPoll(stored.ID)
	ok, err := s.client.SetNX(ctx, key, payload, redis.TTLPoll)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("failed to store poll: %w", err)
	}
	if !ok {
		return domain.Poll{}, errors.NewVersionConflict(stored.ID)
	}

	if err := s.client.SAdd(ctx, s.client.KeyBuilder.KeyGroupPolls(stored.GroupID), stored.ID); err != nil {
		return domain.Poll{}, fmt.Errorf("failed to index poll by group: %w", err)
	}
	if err := s.indexOpen(ctx, stored); err != nil {
		return domain.Poll{}, err
	}

	return stored, nil
}

// Get returns the poll or a poll_not_found error
func (s *RedisPollStore) Get(ctx context.Context, pollID string) (domain.Poll, error) {
	payload, err := s.client.Get(ctx, s.client.KeyBuilder.KeyPoll(pollID))
	if err == goredis.Nil {
		return domain.Poll{}, errors.NewPollNotFound(pollID)
	}
	if err != nil {
		return domain.Poll{}, fmt.Errorf("failed to load poll: %w", err)
	}

	var state domain.Poll
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return domain.Poll{}, fmt.Errorf("failed to unmarshal poll %s: %w", pollID, err)
	}
	return state, nil
}

// Update compare-and-sets the poll inside a WATCH transaction
func (s *RedisPollStore) Update(ctx context.Context, state domain.Poll) (domain.Poll, error) {
	key := s.client.KeyBuilder.KeyPoll(state.ID)

	next := state.Clone()
	next.Version = state.Version + 1
	payload, err := json.Marshal(next)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("failed to marshal poll: %w", err)
	}

	txErr := s.client.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if err == goredis.Nil {
			return errors.NewPollNotFound(state.ID)
		}
		if err != nil {
			return fmt.Errorf("failed to load poll for update: %w", err)
		}

		var stored domain.Poll
		if err := json.Unmarshal([]byte(current), &stored); err != nil {
			return fmt.Errorf("failed to unmarshal poll %s: %w", state.ID, err)
		}
		if stored.Version != state.Version {
			return errors.NewVersionConflict(state.ID)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, redis.TTLPoll)
			openKey := s.client.KeyBuilder.KeyOpenPolls()
			if next.Status == domain.StatusOpen {
				pipe.SAdd(ctx, openKey, next.ID)
			} else {
				pipe.SRem(ctx, openKey, next.ID)
			}
			return nil
		})
		return err
	}, key)

	if txErr == goredis.TxFailedErr {
		return domain.Poll{}, errors.NewVersionConflict(state.ID)
	}
	if txErr != nil {
		return domain.Poll{}, txErr
	}
	return next, nil
}

// ListByGroup returns every poll of a group, newest first
func (s *RedisPollStore) ListByGroup(ctx context.Context, groupID string) ([]domain.Poll, error) {
	ids, err := s.client.SMembers(ctx, s.client.KeyBuilder.KeyGroupPolls(groupID))
	if err != nil {
		return nil, fmt.Errorf("failed to list group polls: %w", err)
	}
	return s.collect(ctx, ids)
}

// ListOpen returns the polls currently in the open state
func (s *RedisPollStore) ListOpen(ctx context.Context) ([]domain.Poll, error) {
	ids, err := s.client.SMembers(ctx, s.client.KeyBuilder.KeyOpenPolls())
	if err != nil {
		return nil, fmt.Errorf("failed to list open polls: %w", err)
	}
	polls, err := s.collect(ctx, ids)
	if err != nil {
		return nil, err
	}
	// the open set can lag behind lazy expiry; filter on actual status
	out := polls[:0]
	for _, p := range polls {
		if p.Status == domain.StatusOpen {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *RedisPollStore) collect(ctx context.Context, ids []string) ([]domain.Poll, error) {
	out := make([]domain.Poll, 0, len(ids))
	for _, id := range ids {
		state, err := s.Get(ctx, id)
		if err != nil {
			if errors.IsType(err, errors.ErrorTypePollNotFound) {
				// expired key still referenced by an index set
				continue
			}
			return nil, err
		}
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *RedisPollStore) indexOpen(ctx context.Context, state domain.Poll) error {
	openKey := s.client.KeyBuilder.KeyOpenPolls()
	if state.Status == domain.StatusOpen {
		if err := s.client.SAdd(ctx, openKey, state.ID); err != nil {
			return fmt.Errorf("failed to index open poll: %w", err)
		}
	}
	return nil
}
