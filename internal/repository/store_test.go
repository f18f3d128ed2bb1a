package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"schedpoll/internal/domain"
	"schedpoll/pkg/errors"
	"schedpoll/pkg/redis"
)

func setupRedisStore(t *testing.T) *RedisPollStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisPollStore(redis.NewClientFromRDB(rdb, "test", zap.NewNop()))
}

// storesUnderTest runs the shared contract tests against every store backend
// that can run without external infrastructure
func storesUnderTest(t *testing.T) map[string]PollStore {
	t.Helper()
	return map[string]PollStore{
		"memory": NewMemoryPollStore(),
		"redis":  setupRedisStore(t),
	}
}

func samplePoll(id, groupID string, createdAt time.Time) domain.Poll {
	return domain.Poll{
		ID:             id,
		GroupID:        groupID,
		Metadata:       domain.EventMetadata{Title: "planning"},
		ParticipantIDs: []string{"alice", "bob"},
		Candidates: []domain.CandidateSlot{
			{ID: "c0", Start: createdAt.Add(time.Hour), End: createdAt.Add(2 * time.Hour), AvailableCount: 2, Rank: 0},
		},
		Status:    domain.StatusOpen,
		Deadline:  createdAt.Add(24 * time.Hour),
		CreatedAt: createdAt,
		Votes:     map[string]domain.Vote{},
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			created, err := store.Create(ctx, samplePoll("poll-1", "group-1", base))
			require.NoError(t, err)
			assert.Equal(t, int64(1), created.Version)

			got, err := store.Get(ctx, "poll-1")
			require.NoError(t, err)
			assert.Equal(t, "group-1", got.GroupID)
			assert.Equal(t, domain.StatusOpen, got.Status)
			assert.Equal(t, int64(1), got.Version)
			assert.Equal(t, "c0", got.Candidates[0].ID)

			// creating the same id twice is rejected
			_, err = store.Create(ctx, samplePoll("poll-1", "group-1", base))
			assert.True(t, errors.IsType(err, errors.ErrorTypeVersionConflict))
		})
	}
}

func TestStoreGetUnknownPoll(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			assert.True(t, errors.IsType(err, errors.ErrorTypePollNotFound))
		})
	}
}

func TestStoreUpdateAdvancesVersion(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			created, err := store.Create(ctx, samplePoll("poll-1", "group-1", base))
			require.NoError(t, err)

			created.Votes["alice"] = domain.Vote{
				PollID: "poll-1", ParticipantID: "alice", CandidateID: "c0", Timestamp: base,
			}
			updated, err := store.Update(ctx, created)
			require.NoError(t, err)
			assert.Equal(t, int64(2), updated.Version)

			got, err := store.Get(ctx, "poll-1")
			require.NoError(t, err)
			assert.Equal(t, int64(2), got.Version)
			assert.Equal(t, "c0", got.Votes["alice"].CandidateID)
		})
	}
}

func TestStoreUpdateDetectsStaleWriter(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			created, err := store.Create(ctx, samplePoll("poll-1", "group-1", base))
			require.NoError(t, err)

			// two readers load version 1, the first write wins
			stale := created.Clone()
			_, err = store.Update(ctx, created)
			require.NoError(t, err)

			_, err = store.Update(ctx, stale)
			assert.True(t, errors.IsType(err, errors.ErrorTypeVersionConflict))
		})
	}
}

func TestStoreUpdateUnknownPoll(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ghost := samplePoll("ghost", "group-1", base)
			ghost.Version = 1
			_, err := store.Update(ctx, ghost)
			assert.True(t, errors.IsType(err, errors.ErrorTypePollNotFound))
		})
	}
}

func TestStoreListByGroup(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Create(ctx, samplePoll("poll-old", "group-1", base))
			require.NoError(t, err)
			_, err = store.Create(ctx, samplePoll("poll-new", "group-1", base.Add(time.Hour)))
			require.NoError(t, err)
			_, err = store.Create(ctx, samplePoll("poll-other", "group-2", base))
			require.NoError(t, err)

			polls, err := store.ListByGroup(ctx, "group-1")
			require.NoError(t, err)
			require.Len(t, polls, 2)
			assert.Equal(t, "poll-new", polls[0].ID)
			assert.Equal(t, "poll-old", polls[1].ID)

			empty, err := store.ListByGroup(ctx, "group-none")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStoreListOpen(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			open, err := store.Create(ctx, samplePoll("poll-open", "group-1", base))
			require.NoError(t, err)
			closed, err := store.Create(ctx, samplePoll("poll-closed", "group-1", base))
			require.NoError(t, err)

			closed.Status = domain.StatusClosed
			_, err = store.Update(ctx, closed)
			require.NoError(t, err)

			polls, err := store.ListOpen(ctx)
			require.NoError(t, err)
			require.Len(t, polls, 1)
			assert.Equal(t, open.ID, polls[0].ID)
		})
	}
}
