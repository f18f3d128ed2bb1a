package poll

import (
	"sort"

	"schedpoll/internal/domain"
	"schedpoll/pkg/errors"
)

// Tally is the vote count per candidate at a point in time
type Tally struct {
	// Counts maps candidate id to its number of active votes. Every
	// candidate of the poll appears, zero included.
	Counts map[string]int `json:"counts"`

	// VotedParticipantIDs lists who has voted, sorted, without revealing
	// for which candidate
	VotedParticipantIDs []string `json:"voted_participant_ids"`

	Total int `json:"total"`
}

// Count computes the current tally from a poll's active votes
func Count(p *domain.Poll) Tally {
	t := Tally{Counts: make(map[string]int, len(p.Candidates))}
	for _, c := range p.Candidates {
		t.Counts[c.ID] = 0
	}
	for participantID, v := range p.Votes {
		t.Counts[v.CandidateID]++
		t.VotedParticipantIDs = append(t.VotedParticipantIDs, participantID)
		t.Total++
	}
	sort.Strings(t.VotedParticipantIDs)
	return t
}

// Winner selects the winning candidate from the active votes:
//
//  1. highest vote count
//  2. tie-break: fewer unavailable participants
//  3. remaining tie: lower rank
//
// With zero votes cast the rank-0 candidate wins, so a poll with no
// engagement still produces a result.
func Winner(candidates []domain.CandidateSlot, votes map[string]domain.Vote) (domain.CandidateSlot, error) {
	if len(candidates) == 0 {
		return domain.CandidateSlot{}, errors.NewNoCandidates("poll has no candidates to finalize")
	}

	counts := make(map[string]int, len(candidates))
	for _, v := range votes {
		counts[v.CandidateID]++
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best, counts) {
			best = c
		}
	}
	return best, nil
}

func better(a, b domain.CandidateSlot, counts map[string]int) bool {
	if counts[a.ID] != counts[b.ID] {
		return counts[a.ID] > counts[b.ID]
	}
	if len(a.UnavailableParticipantIDs) != len(b.UnavailableParticipantIDs) {
		return len(a.UnavailableParticipantIDs) < len(b.UnavailableParticipantIDs)
	}
	return a.Rank < b.Rank
}
