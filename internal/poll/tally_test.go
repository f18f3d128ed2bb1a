package poll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedpoll/internal/domain"
	"schedpoll/pkg/errors"
)

func slot(id string, rank int, unavailable ...string) domain.CandidateSlot {
	return domain.CandidateSlot{
		ID:                        id,
		Start:                     t0.Add(time.Duration(rank) * time.Hour),
		End:                       t0.Add(time.Duration(rank+1) * time.Hour),
		UnavailableParticipantIDs: unavailable,
		Rank:                      rank,
	}
}

func vote(participantID, candidateID string) domain.Vote {
	return domain.Vote{ParticipantID: participantID, CandidateID: candidateID, Timestamp: t0}
}

func TestCount(t *testing.T) {
	p := &domain.Poll{
		Candidates: []domain.CandidateSlot{slot("c0", 0), slot("c1", 1), slot("c2", 2)},
		Votes: map[string]domain.Vote{
			"carol": vote("carol", "c1"),
			"alice": vote("alice", "c0"),
			"bob":   vote("bob", "c1"),
		},
	}

	tally := Count(p)

	// every candidate appears, zero included
	assert.Equal(t, map[string]int{"c0": 1, "c1": 2, "c2": 0}, tally.Counts)
	assert.Equal(t, []string{"alice", "bob", "carol"}, tally.VotedParticipantIDs)
	assert.Equal(t, 3, tally.Total)
}

func TestCountEmptyPoll(t *testing.T) {
	p := &domain.Poll{
		Candidates: []domain.CandidateSlot{slot("c0", 0)},
		Votes:      map[string]domain.Vote{},
	}

	tally := Count(p)
	assert.Equal(t, map[string]int{"c0": 0}, tally.Counts)
	assert.Empty(t, tally.VotedParticipantIDs)
	assert.Equal(t, 0, tally.Total)
}

func TestWinnerByVoteCount(t *testing.T) {
	winner, err := Winner(
		[]domain.CandidateSlot{slot("c0", 0), slot("c1", 1)},
		map[string]domain.Vote{
			"alice": vote("alice", "c1"),
			"bob":   vote("bob", "c1"),
			"carol": vote("carol", "c0"),
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "c1", winner.ID)
}

func TestWinnerTieBreaksOnAvailability(t *testing.T) {
	// one vote each; c1 has nobody unavailable, c0 has one
	winner, err := Winner(
		[]domain.CandidateSlot{slot("c0", 0, "dave"), slot("c1", 1)},
		map[string]domain.Vote{
			"alice": vote("alice", "c0"),
			"bob":   vote("bob", "c1"),
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "c1", winner.ID)
}

func TestWinnerTieBreaksOnRank(t *testing.T) {
	winner, err := Winner(
		[]domain.CandidateSlot{slot("c0", 0), slot("c1", 1)},
		map[string]domain.Vote{
			"alice": vote("alice", "c1"),
			"bob":   vote("bob", "c0"),
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "c0", winner.ID)
}

func TestWinnerWithZeroVotes(t *testing.T) {
	// no engagement still produces a result: the rank-0 candidate
	winner, err := Winner(
		[]domain.CandidateSlot{slot("c0", 0), slot("c1", 1), slot("c2", 2)},
		map[string]domain.Vote{},
	)
	require.NoError(t, err)
	assert.Equal(t, "c0", winner.ID)
}

func TestWinnerWithoutCandidates(t *testing.T) {
	_, err := Winner(nil, map[string]domain.Vote{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoCandidates))
}
