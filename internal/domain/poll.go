package domain

import "time"

// PollStatus is the lifecycle state of a poll. Transitions are one-way:
// draft → open → {closed, expired} → finalized, with cancelled reachable
// from draft or open.
type PollStatus string

const (
	StatusDraft     PollStatus = "draft"
	StatusOpen      PollStatus = "open"
	StatusClosed    PollStatus = "closed"
	StatusExpired   PollStatus = "expired"
	StatusCancelled PollStatus = "cancelled"
	StatusFinalized PollStatus = "finalized"
)

// Terminal reports whether no further transition can leave this status
func (s PollStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusFinalized
}

// Vote is one participant's current choice in a poll. A participant holds at
// most one active vote; a new vote replaces the prior one.
type Vote struct {
	PollID        string    `json:"poll_id"`
	ParticipantID string    `json:"participant_id"`
	CandidateID   string    `json:"candidate_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// RegistrationOutcome records one participant's calendar registration result
type RegistrationOutcome struct {
	EventID string `json:"event_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeeded reports whether the registration produced an event
func (o RegistrationOutcome) Succeeded() bool {
	return o.Error == ""
}

// FinalizedResult is the cached outcome of a finalized poll
type FinalizedResult struct {
	PollID                string                         `json:"poll_id"`
	WinningCandidate      CandidateSlot                  `json:"winning_candidate"`
	PerParticipantOutcome map[string]RegistrationOutcome `json:"per_participant_outcome"`
	FinalizedAt           time.Time                      `json:"finalized_at"`
}

// EventMetadata is carried from poll creation into the registered event
type EventMetadata struct {
	Title       string `json:"title"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Poll is the serializable state of one group scheduling decision. All
// mutation goes through poll.Session so transitions stay monotonic; stores
// persist and restore this struct as a whole.
type Poll struct {
	ID             string          `json:"id"`
	GroupID        string          `json:"group_id"`
	Metadata       EventMetadata   `json:"metadata"`
	ParticipantIDs []string        `json:"participant_ids"`
	Candidates     []CandidateSlot `json:"candidates"`
	Status         PollStatus      `json:"status"`
	Deadline       time.Time       `json:"deadline"`
	CreatedAt      time.Time       `json:"created_at"`

	// Votes holds the active vote per participant id
	Votes map[string]Vote `json:"votes,omitempty"`

	// Result is set exactly once, when the poll is finalized
	Result *FinalizedResult `json:"result,omitempty"`

	// Version increments on every persisted mutation, for store-level
	// compare-and-set
	Version int64 `json:"version"`
}

// HasParticipant reports whether id belongs to the poll's fixed group
func (p *Poll) HasParticipant(id string) bool {
	for _, pid := range p.ParticipantIDs {
		if pid == id {
			return true
		}
	}
	return false
}

// CandidateByID finds a candidate of this poll by id
func (p *Poll) CandidateByID(id string) (CandidateSlot, bool) {
	for _, c := range p.Candidates {
		if c.ID == id {
			return c, true
		}
	}
	return CandidateSlot{}, false
}

// Clone returns a deep copy of the poll state
func (p *Poll) Clone() Poll {
	out := *p
	out.ParticipantIDs = append([]string(nil), p.ParticipantIDs...)
	out.Candidates = CloneCandidates(p.Candidates)
	if p.Votes != nil {
		out.Votes = make(map[string]Vote, len(p.Votes))
		for k, v := range p.Votes {
			out.Votes[k] = v
		}
	}
	if p.Result != nil {
		res := *p.Result
		res.WinningCandidate = p.Result.WinningCandidate.clone()
		if p.Result.PerParticipantOutcome != nil {
			res.PerParticipantOutcome = make(map[string]RegistrationOutcome, len(p.Result.PerParticipantOutcome))
			for k, v := range p.Result.PerParticipantOutcome {
				res.PerParticipantOutcome[k] = v
			}
		}
		out.Result = &res
	}
	return out
}

// PollSnapshot is the read model served to callers: poll state plus the
// current tally.
type PollSnapshot struct {
	ID                  string           `json:"id"`
	GroupID             string           `json:"group_id"`
	Metadata            EventMetadata    `json:"metadata"`
	ParticipantIDs      []string         `json:"participant_ids"`
	Candidates          []CandidateSlot  `json:"candidates"`
	Status              PollStatus       `json:"status"`
	Deadline            time.Time        `json:"deadline"`
	CreatedAt           time.Time        `json:"created_at"`
	Tally               map[string]int   `json:"tally"`
	VotedParticipantIDs []string         `json:"voted_participant_ids"`
	Result              *FinalizedResult `json:"result,omitempty"`
}
