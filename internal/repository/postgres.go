package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"schedpoll/internal/domain"
	"schedpoll/pkg/database"
	"schedpoll/pkg/errors"
)

// PostgresPollStore persists polls durably as JSONB snapshots. The version
// column backs the compare-and-set; status and group_id are denormalized for
// the list queries.
type PostgresPollStore struct {
	db *database.PostgresDB
}

// NewPostgresPollStore creates a Postgres-backed poll store
func NewPostgresPollStore(db *database.PostgresDB) *PostgresPollStore {
	return &PostgresPollStore{db: db}
}

// Create stores a new poll
func (s *PostgresPollStore) Create(ctx context.Context, state domain.Poll) (domain.Poll, error) {
	stored := state.Clone()
	stored.Version = 1

	payload, err := json.Marshal(stored)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("failed to marshal poll: %w", err)
	}

	query := `
		INSERT INTO polls (id, group_id, status, deadline, state, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.Pool.Exec(ctx, query,
		stored.ID,
		stored.GroupID,
		string(stored.Status),
		stored.Deadline,
		payload,
		stored.Version,
		stored.CreatedAt,
	)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("failed to create poll: %w", err)
	}
	return stored, nil
}

// Get returns the poll or a poll_not_found error
func (s *PostgresPollStore) Get(ctx context.Context, pollID string) (domain.Poll, error) {
	var payload []byte
	err := s.db.Pool.QueryRow(ctx, `SELECT state FROM polls WHERE id = $1`, pollID).Scan(&payload)
	if err == pgx.ErrNoRows {
		return domain.Poll{}, errors.NewPollNotFound(pollID)
	}
	if err != nil {
		return domain.Poll{}, fmt.Errorf("failed to load poll: %w", err)
	}

	var state domain.Poll
	if err := json.Unmarshal(payload, &state); err != nil {
		return domain.Poll{}, fmt.Errorf("failed to unmarshal poll %s: %w", pollID, err)
	}
	return state, nil
}

// Update compare-and-sets the poll on its version column
func (s *PostgresPollStore) Update(ctx context.Context, state domain.Poll) (domain.Poll, error) {
	next := state.Clone()
	next.Version = state.Version + 1

	payload, err := json.Marshal(next)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("failed to marshal poll: %w", err)
	}

	query := `
		UPDATE polls
		SET status = $2, deadline = $3, state = $4, version = $5
		WHERE id = $1 AND version = $6
	`
	tag, err := s.db.Pool.Exec(ctx, query,
		next.ID,
		string(next.Status),
		next.Deadline,
		payload,
		next.Version,
		state.Version,
	)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("failed to update poll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// either the poll is gone or another writer advanced the version
		if _, getErr := s.Get(ctx, state.ID); getErr != nil {
			return domain.Poll{}, getErr
		}
		return domain.Poll{}, errors.NewVersionConflict(state.ID)
	}
	return next, nil
}

// ListByGroup returns every poll of a group, newest first
func (s *PostgresPollStore) ListByGroup(ctx context.Context, groupID string) ([]domain.Poll, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT state FROM polls WHERE group_id = $1 ORDER BY created_at DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group polls: %w", err)
	}
	defer rows.Close()
	return scanPolls(rows)
}

// ListOpen returns the polls currently in the open state
func (s *PostgresPollStore) ListOpen(ctx context.Context) ([]domain.Poll, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT state FROM polls WHERE status = $1 ORDER BY created_at DESC`, string(domain.StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("failed to list open polls: %w", err)
	}
	defer rows.Close()
	return scanPolls(rows)
}

func scanPolls(rows pgx.Rows) ([]domain.Poll, error) {
	var out []domain.Poll
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		var state domain.Poll
		if err := json.Unmarshal(payload, &state); err != nil {
			return nil, fmt.Errorf("failed to unmarshal poll: %w", err)
		}
		out = append(out, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read polls: %w", err)
	}
	return out, nil
}
