package domain

import "time"

// CandidateSlot is a generated time range proposed as a possible meeting
// time. IDs are ordinals assigned in rank order and are stable within a poll.
type CandidateSlot struct {
	ID                        string    `json:"id"`
	Start                     time.Time `json:"start"`
	End                       time.Time `json:"end"`
	AvailableCount            int       `json:"available_count"`
	UnavailableParticipantIDs []string  `json:"unavailable_participant_ids,omitempty"`
	Rank                      int       `json:"rank"`
}

// clone returns a deep copy of the slot
func (c CandidateSlot) clone() CandidateSlot {
	out := c
	if c.UnavailableParticipantIDs != nil {
		out.UnavailableParticipantIDs = append([]string(nil), c.UnavailableParticipantIDs...)
	}
	return out
}

// CloneCandidates deep-copies a candidate list
func CloneCandidates(candidates []CandidateSlot) []CandidateSlot {
	if candidates == nil {
		return nil
	}
	out := make([]CandidateSlot, len(candidates))
	for i, c := range candidates {
		out[i] = c.clone()
	}
	return out
}
