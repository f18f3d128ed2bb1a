package repository

import (
	"context"

	"schedpoll/internal/domain"
)

// PollStore persists serialized poll state addressed by poll id. The
// scheduler serializes mutation per poll in-process; Update additionally
// compare-and-sets on the version field so a stale write from another
// instance is rejected instead of silently applied.
type PollStore interface {
	// Create stores a new poll; the stored version starts at 1
	Create(ctx context.Context, state domain.Poll) (domain.Poll, error)

	// Get returns the poll or a poll_not_found error
	Get(ctx context.Context, pollID string) (domain.Poll, error)

	// Update persists state if the stored version still equals
	// state.Version, bumping it by one. A mismatch yields a
	// version_conflict error.
	Update(ctx context.Context, state domain.Poll) (domain.Poll, error)

	// ListByGroup returns every poll of a group, newest first
	ListByGroup(ctx context.Context, groupID string) ([]domain.Poll, error)

	// ListOpen returns the polls currently in the open state, for the
	// expiry sweeper
	ListOpen(ctx context.Context) ([]domain.Poll, error)
}
