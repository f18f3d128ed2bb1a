package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"schedpoll/internal/calendar"
	"schedpoll/internal/domain"
	"schedpoll/internal/poll"
	"schedpoll/internal/repository"
	"schedpoll/internal/schedule"
	"schedpoll/pkg/errors"
	"schedpoll/pkg/logger"
)

// SchedulerOptions tunes candidate generation defaults and the calendar
// fan-out bounds
type SchedulerOptions struct {
	DefaultGranularity   time.Duration
	DefaultMaxCandidates int
	DefaultPollLifetime  time.Duration
	FreeBusyConcurrency  int
	RegisterConcurrency  int
	CalendarCallTimeout  time.Duration
}

func (o SchedulerOptions) withDefaults() SchedulerOptions {
	if o.DefaultGranularity <= 0 {
		o.DefaultGranularity = schedule.DefaultGranularity
	}
	if o.DefaultMaxCandidates <= 0 {
		o.DefaultMaxCandidates = schedule.DefaultMaxCandidates
	}
	if o.DefaultPollLifetime <= 0 {
		o.DefaultPollLifetime = 24 * time.Hour
	}
	if o.FreeBusyConcurrency <= 0 {
		o.FreeBusyConcurrency = 5
	}
	if o.RegisterConcurrency <= 0 {
		o.RegisterConcurrency = 5
	}
	if o.CalendarCallTimeout <= 0 {
		o.CalendarCallTimeout = 10 * time.Second
	}
	return o
}

// SchedulerService turns per-participant busy data into ranked candidates,
// runs the poll lifecycle over them and drives finalization.
type SchedulerService struct {
	store     repository.PollStore
	provider  calendar.BusyIntervalProvider
	registrar calendar.EventRegistrar
	clock     calendar.Clock
	opts      SchedulerOptions
	locks     *pollLocks
	logger    *logger.Logger
}

// NewSchedulerService wires the scheduling engine with its collaborators
func NewSchedulerService(
	store repository.PollStore,
	provider calendar.BusyIntervalProvider,
	registrar calendar.EventRegistrar,
	clock calendar.Clock,
	opts SchedulerOptions,
	log *logger.Logger,
) *SchedulerService {
	return &SchedulerService{
		store:     store,
		provider:  provider,
		registrar: registrar,
		clock:     clock,
		opts:      opts.withDefaults(),
		locks:     newPollLocks(),
		logger:    log,
	}
}

// CreatePollRequest carries everything needed to generate candidates and
// open a poll over them
type CreatePollRequest struct {
	GroupID        string               `json:"group_id"`
	Metadata       domain.EventMetadata `json:"metadata"`
	ParticipantIDs []string             `json:"participant_ids"`
	Duration       time.Duration        `json:"duration"`
	Window         domain.TimeWindow    `json:"window"`
	MinAvailable   int                  `json:"min_available,omitempty"`
	MaxCandidates  int                  `json:"max_candidates,omitempty"`
	Deadline       time.Time            `json:"deadline,omitempty"`
}

// CreatePollResponse returns the opened poll plus any participants whose
// busy data had to be substituted
type CreatePollResponse struct {
	Poll     domain.PollSnapshot `json:"poll"`
	Warnings []schedule.Warning  `json:"warnings,omitempty"`
}

// CreatePoll fetches busy intervals, generates ranked candidates and opens a
// poll over them. Validation failures are fatal to the call and never create
// a session.
func (s *SchedulerService) CreatePoll(ctx context.Context, req *CreatePollRequest) (*CreatePollResponse, error) {
	if req.GroupID == "" {
		return nil, errors.NewValidationError("group_id is required", nil)
	}
	if len(req.ParticipantIDs) == 0 {
		return nil, errors.NewValidationError("at least one participant is required", nil)
	}
	if !req.Window.SearchEnd.After(req.Window.SearchStart) {
		return nil, errors.NewEmptyWindow()
	}
	if req.Duration <= 0 {
		return nil, errors.NewInvalidDuration()
	}

	window := req.Window
	if window.Granularity <= 0 {
		window.Granularity = s.opts.DefaultGranularity
	}
	maxCandidates := req.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = s.opts.DefaultMaxCandidates
	}

	now := s.clock.Now()
	deadline := req.Deadline
	if deadline.IsZero() {
		deadline = now.Add(s.opts.DefaultPollLifetime)
	}

	agg := s.aggregateBusyData(ctx, req.ParticipantIDs, window)

	candidates, err := schedule.GenerateCandidates(window, req.ParticipantIDs, agg, schedule.Options{
		Duration:      req.Duration,
		MinAvailable:  req.MinAvailable,
		MaxCandidates: maxCandidates,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.NewNoCandidates("no slot satisfies the availability policy in this window")
	}

	session := poll.NewSession(uuid.NewString(), req.GroupID, req.Metadata, req.ParticipantIDs, now)
	if err := session.Open(candidates, deadline); err != nil {
		return nil, err
	}

	stored, err := s.store.Create(ctx, session.Snapshot())
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"poll_id":      stored.ID,
		"group_id":     stored.GroupID,
		"candidates":   len(stored.Candidates),
		"participants": len(stored.ParticipantIDs),
	}).Info("poll opened")

	return &CreatePollResponse{
		Poll:     snapshotOf(stored),
		Warnings: agg.Warnings(),
	}, nil
}

// aggregateBusyData fetches every participant's busy intervals with bounded
// parallelism. A fetch that fails or times out does not fail the operation;
// the participant is substituted as busy for the whole window.
func (s *SchedulerService) aggregateBusyData(ctx context.Context, participantIDs []string, window domain.TimeWindow) *schedule.Aggregator {
	var (
		mu      sync.Mutex
		fetched = make(map[string][]domain.BusyInterval, len(participantIDs))
		failed  = make(map[string]string)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FreeBusyConcurrency)

	for _, participantID := range participantIDs {
		participantID := participantID
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.opts.CalendarCallTimeout)
			defer cancel()

			intervals, err := s.provider.BusyIntervals(callCtx, participantID, window.SearchStart, window.SearchEnd)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.WithError(err).
					WithField("participant_id", participantID).
					Warn("busy interval fetch failed, treating participant as busy")
				failed[participantID] = "busy interval fetch failed: " + err.Error()
				return nil
			}
			fetched[participantID] = intervals
			return nil
		})
	}
	// workers never return errors; failures are recorded per participant
	_ = g.Wait()

	agg := schedule.NewAggregator(window.SearchStart, window.SearchEnd, fetched)
	for participantID, reason := range failed {
		agg.MarkBusy(participantID, reason)
	}
	return agg
}

// SubmitVote records or replaces a participant's vote
func (s *SchedulerService) SubmitVote(ctx context.Context, pollID, participantID, candidateID string) (domain.PollSnapshot, error) {
	return s.mutate(ctx, pollID, func(session *poll.Session, now time.Time) error {
		return session.CastVote(now, participantID, candidateID)
	})
}

// ClosePoll explicitly ends the voting phase
func (s *SchedulerService) ClosePoll(ctx context.Context, pollID string) (domain.PollSnapshot, error) {
	return s.mutate(ctx, pollID, func(session *poll.Session, now time.Time) error {
		return session.Close(now)
	})
}

// CancelPoll abandons the poll; no winner is ever computed
func (s *SchedulerService) CancelPoll(ctx context.Context, pollID string) (domain.PollSnapshot, error) {
	return s.mutate(ctx, pollID, func(session *poll.Session, now time.Time) error {
		return session.Cancel(now)
	})
}

// mutate runs one serialized transition against a poll. An expiry observed
// on access is persisted even when the requested transition is rejected.
func (s *SchedulerService) mutate(ctx context.Context, pollID string, fn func(*poll.Session, time.Time) error) (domain.PollSnapshot, error) {
	unlock := s.locks.acquire(pollID)
	defer unlock()

	state, err := s.store.Get(ctx, pollID)
	if err != nil {
		return domain.PollSnapshot{}, err
	}

	session := poll.Restore(state)
	now := s.clock.Now()
	expired := session.ExpireIfDue(now)
	mutErr := fn(session, now)

	if expired || mutErr == nil {
		updated, updErr := s.store.Update(ctx, session.Snapshot())
		if updErr != nil {
			return domain.PollSnapshot{}, updErr
		}
		state = updated
	} else {
		state = session.Snapshot()
	}

	if mutErr != nil {
		return domain.PollSnapshot{}, mutErr
	}
	return snapshotOf(state), nil
}

// FinalizePoll closes out a poll: it fixes the winner from the tally and
// issues one registration request per participant. A second call on an
// already finalized poll re-serves the cached result unchanged.
func (s *SchedulerService) FinalizePoll(ctx context.Context, pollID string) (domain.FinalizedResult, error) {
	unlock := s.locks.acquire(pollID)
	defer unlock()

	state, err := s.store.Get(ctx, pollID)
	if err != nil {
		return domain.FinalizedResult{}, err
	}

	session := poll.Restore(state)
	now := s.clock.Now()
	expired := session.ExpireIfDue(now)

	winner, already, err := session.Finalize(now)
	if err != nil {
		if expired {
			if _, updErr := s.store.Update(ctx, session.Snapshot()); updErr != nil {
				s.logger.WithError(updErr).WithField("poll_id", pollID).Error("failed to persist expiry")
			}
		}
		return domain.FinalizedResult{}, err
	}

	if already {
		result, _ := session.Result()
		return result, nil
	}

	outcomes := s.registerWinner(ctx, state.ParticipantIDs, winner, state.Metadata)
	session.SetRegistrationOutcomes(outcomes)

	if _, err := s.store.Update(ctx, session.Snapshot()); err != nil {
		return domain.FinalizedResult{}, err
	}

	result, _ := session.Result()
	s.logger.WithFields(map[string]interface{}{
		"poll_id":      pollID,
		"winner":       winner.ID,
		"participants": len(state.ParticipantIDs),
	}).Info("poll finalized")
	return result, nil
}

// GetPollState returns the poll snapshot with the current tally. Expiry is
// observed lazily: a read past the deadline persists the Expired state.
func (s *SchedulerService) GetPollState(ctx context.Context, pollID string) (domain.PollSnapshot, error) {
	unlock := s.locks.acquire(pollID)
	defer unlock()

	state, err := s.store.Get(ctx, pollID)
	if err != nil {
		return domain.PollSnapshot{}, err
	}

	session := poll.Restore(state)
	if session.ExpireIfDue(s.clock.Now()) {
		updated, updErr := s.store.Update(ctx, session.Snapshot())
		if updErr != nil {
			s.logger.WithError(updErr).WithField("poll_id", pollID).Warn("failed to persist lazy expiry")
			return snapshotOf(session.Snapshot()), nil
		}
		return snapshotOf(updated), nil
	}
	return snapshotOf(state), nil
}

// ListGroupPolls returns the snapshots of a group's polls, newest first
func (s *SchedulerService) ListGroupPolls(ctx context.Context, groupID string) ([]domain.PollSnapshot, error) {
	states, err := s.store.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	out := make([]domain.PollSnapshot, 0, len(states))
	for _, state := range states {
		// view-level expiry; the sweeper persists the transition
		session := poll.Restore(state)
		session.ExpireIfDue(now)
		out = append(out, snapshotOf(session.Snapshot()))
	}
	return out, nil
}

// ExpireDuePolls marks every open poll past its deadline as expired and
// returns how many transitions were persisted. The cron sweeper calls this.
func (s *SchedulerService) ExpireDuePolls(ctx context.Context) (int, error) {
	states, err := s.store.ListOpen(ctx)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, state := range states {
		n, err := s.expireOne(ctx, state.ID)
		if err != nil {
			s.logger.WithError(err).WithField("poll_id", state.ID).Warn("expiry sweep failed for poll")
			continue
		}
		expired += n
	}
	return expired, nil
}

func (s *SchedulerService) expireOne(ctx context.Context, pollID string) (int, error) {
	unlock := s.locks.acquire(pollID)
	defer unlock()

	state, err := s.store.Get(ctx, pollID)
	if err != nil {
		return 0, err
	}
	session := poll.Restore(state)
	if !session.ExpireIfDue(s.clock.Now()) {
		return 0, nil
	}
	if _, err := s.store.Update(ctx, session.Snapshot()); err != nil {
		return 0, err
	}
	s.logger.Debug("poll expired", zap.String("poll_id", pollID))
	return 1, nil
}

// snapshotOf builds the read model served to callers
func snapshotOf(state domain.Poll) domain.PollSnapshot {
	tally := poll.Count(&state)
	return domain.PollSnapshot{
		ID:                  state.ID,
		GroupID:             state.GroupID,
		Metadata:            state.Metadata,
		ParticipantIDs:      state.ParticipantIDs,
		Candidates:          state.Candidates,
		Status:              state.Status,
		Deadline:            state.Deadline,
		CreatedAt:           state.CreatedAt,
		Tally:               tally.Counts,
		VotedParticipantIDs: tally.VotedParticipantIDs,
		Result:              state.Result,
	}
}
