package poll

import (
	"sync"
	"time"

	"schedpoll/internal/domain"
	"schedpoll/pkg/errors"
)

// Session is the single mutating authority for one poll. All transitions go
// through its mutex so two concurrent votes never lose an update and no vote
// is accepted after a close, cancel or expiry has taken effect.
//
// The underlying domain.Poll is serializable; Snapshot hands a deep copy to
// stores so an external store can persist and restore sessions across
// process restarts.
type Session struct {
	mu    sync.Mutex
	state domain.Poll
}

// NewSession creates a poll in Draft state
func NewSession(id, groupID string, meta domain.EventMetadata, participantIDs []string, createdAt time.Time) *Session {
	return &Session{
		state: domain.Poll{
			ID:             id,
			GroupID:        groupID,
			Metadata:       meta,
			ParticipantIDs: append([]string(nil), participantIDs...),
			Status:         domain.StatusDraft,
			CreatedAt:      createdAt,
			Votes:          make(map[string]domain.Vote),
		},
	}
}

// Restore rebuilds a session from persisted state
func Restore(state domain.Poll) *Session {
	restored := state.Clone()
	if restored.Votes == nil {
		restored.Votes = make(map[string]domain.Vote)
	}
	return &Session{state: restored}
}

// Snapshot returns a deep copy of the poll state
func (s *Session) Snapshot() domain.Poll {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// ID returns the poll id
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// Status returns the current poll status
func (s *Session) Status() domain.PollStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status
}

// Open transitions Draft → Open with the generated candidates and deadline.
// The candidate list is copied and immutable from here on.
func (s *Session) Open(candidates []domain.CandidateSlot, deadline time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != domain.StatusDraft {
		return errors.NewPollClosed(string(s.state.Status))
	}
	if len(candidates) == 0 {
		return errors.NewNoCandidates("a poll cannot open without candidates")
	}

	s.state.Candidates = domain.CloneCandidates(candidates)
	s.state.Deadline = deadline
	s.state.Status = domain.StatusOpen
	return nil
}

// CastVote records or replaces the participant's active vote. Permitted only
// while Open and before the deadline.
func (s *Session) CastVote(now time.Time, participantID, candidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(now)
	if s.state.Status != domain.StatusOpen {
		return errors.NewPollClosed(string(s.state.Status))
	}
	if !s.state.HasParticipant(participantID) {
		return errors.NewVoterNotInGroup(participantID)
	}
	if _, ok := s.state.CandidateByID(candidateID); !ok {
		return errors.NewUnknownCandidate(candidateID)
	}

	s.state.Votes[participantID] = domain.Vote{
		PollID:        s.state.ID,
		ParticipantID: participantID,
		CandidateID:   candidateID,
		Timestamp:     now,
	}
	return nil
}

// Close transitions Open → Closed
func (s *Session) Close(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(now)
	if s.state.Status != domain.StatusOpen {
		return errors.NewPollClosed(string(s.state.Status))
	}
	s.state.Status = domain.StatusClosed
	return nil
}

// Cancel transitions Draft or Open → Cancelled. Terminal; no winner is ever
// computed for a cancelled poll.
func (s *Session) Cancel(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(now)
	if s.state.Status != domain.StatusDraft && s.state.Status != domain.StatusOpen {
		return errors.NewPollClosed(string(s.state.Status))
	}
	s.state.Status = domain.StatusCancelled
	return nil
}

// ExpireIfDue marks an Open poll past its deadline as Expired. Returns true
// when the transition happened. The expiry sweeper calls this on a tick;
// every other access path applies the same check lazily.
func (s *Session) ExpireIfDue(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expireLocked(now)
}

func (s *Session) expireLocked(now time.Time) bool {
	if s.state.Status == domain.StatusOpen && !now.Before(s.state.Deadline) {
		s.state.Status = domain.StatusExpired
		return true
	}
	return false
}

// Finalize computes the winner and transitions Closed or Expired →
// Finalized. On an already finalized poll it returns the cached winner with
// already=true and never recomputes.
func (s *Session) Finalize(now time.Time) (winner domain.CandidateSlot, already bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(now)

	if s.state.Status == domain.StatusFinalized {
		return s.state.Result.WinningCandidate, true, nil
	}
	if s.state.Status != domain.StatusClosed && s.state.Status != domain.StatusExpired {
		return domain.CandidateSlot{}, false, errors.NewPollClosed(string(s.state.Status))
	}

	winner, err = Winner(s.state.Candidates, s.state.Votes)
	if err != nil {
		return domain.CandidateSlot{}, false, err
	}

	s.state.Status = domain.StatusFinalized
	s.state.Result = &domain.FinalizedResult{
		PollID:           s.state.ID,
		WinningCandidate: winner,
		FinalizedAt:      now,
	}
	return winner, false, nil
}

// SetRegistrationOutcomes attaches the per-participant registration results
// to the cached finalized result. Outcomes are written once; later calls are
// ignored so a re-served finalization never mutates the cached result.
func (s *Session) SetRegistrationOutcomes(outcomes map[string]domain.RegistrationOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Result == nil || s.state.Result.PerParticipantOutcome != nil {
		return
	}
	copied := make(map[string]domain.RegistrationOutcome, len(outcomes))
	for k, v := range outcomes {
		copied[k] = v
	}
	s.state.Result.PerParticipantOutcome = copied
}

// Result returns a copy of the finalized result, if any
func (s *Session) Result() (domain.FinalizedResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Result == nil {
		return domain.FinalizedResult{}, false
	}
	clone := s.state.Clone()
	return *clone.Result, true
}
