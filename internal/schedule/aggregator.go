package schedule

import (
	"sort"
	"time"

	"schedpoll/internal/domain"
	"schedpoll/pkg/errors"
)

// Warning reports a participant whose busy data could not be used. The
// participant is conservatively treated as busy for the whole window so a
// slot is never offered on missing or corrupt data.
type Warning struct {
	ParticipantID string `json:"participant_id"`
	Reason        string `json:"reason"`
}

// Aggregator merges per-participant busy intervals into a queryable combined
// timeline for one search window.
type Aggregator struct {
	windowStart time.Time
	windowEnd   time.Time

	// validated intervals per participant, sorted and non-overlapping as
	// supplied by the calendar collaborator
	byParticipant map[string][]domain.BusyInterval

	// participants substituted as busy for the entire window
	alwaysBusy map[string]struct{}

	warnings []Warning
}

// NewAggregator validates and indexes busy intervals for the window
// [windowStart, windowEnd). Intervals must arrive pre-sorted and
// non-overlapping per participant; the aggregator validates but does not
// sort. A participant with a malformed sequence is substituted as busy for
// the whole window and reported via Warnings.
func NewAggregator(windowStart, windowEnd time.Time, intervals map[string][]domain.BusyInterval) *Aggregator {
	a := &Aggregator{
		windowStart:   windowStart,
		windowEnd:     windowEnd,
		byParticipant: make(map[string][]domain.BusyInterval, len(intervals)),
		alwaysBusy:    make(map[string]struct{}),
	}

	for participantID, ivs := range intervals {
		if err := validateIntervals(participantID, ivs); err != nil {
			a.MarkBusy(participantID, err.Error())
			continue
		}
		a.byParticipant[participantID] = ivs
	}

	return a
}

// MarkBusy substitutes a participant as busy for the entire window and
// records why. Used for malformed data and for busy-interval fetches that
// failed or timed out.
func (a *Aggregator) MarkBusy(participantID, reason string) {
	if _, ok := a.alwaysBusy[participantID]; ok {
		return
	}
	a.alwaysBusy[participantID] = struct{}{}
	delete(a.byParticipant, participantID)
	a.warnings = append(a.warnings, Warning{ParticipantID: participantID, Reason: reason})
}

// Warnings returns the participants whose data was substituted, in the order
// they were recorded
func (a *Aggregator) Warnings() []Warning {
	return a.warnings
}

// BusyDuring returns the sorted set of participant ids with an interval
// overlapping [start, end). Touching endpoints do not count as overlap.
func (a *Aggregator) BusyDuring(start, end time.Time) []string {
	var busy []string

	for participantID := range a.alwaysBusy {
		busy = append(busy, participantID)
	}

	for participantID, ivs := range a.byParticipant {
		// first interval that ends after the slot starts; intervals are
		// sorted, so it is the only one that can overlap
		i := sort.Search(len(ivs), func(i int) bool {
			return ivs[i].End.After(start)
		})
		if i < len(ivs) && ivs[i].Start.Before(end) {
			busy = append(busy, participantID)
		}
	}

	sort.Strings(busy)
	return busy
}

// validateIntervals checks that a participant's sequence is well-formed,
// sorted and non-overlapping
func validateIntervals(participantID string, ivs []domain.BusyInterval) error {
	for i, iv := range ivs {
		if !iv.Start.Before(iv.End) {
			return errors.NewInvalidInterval(participantID)
		}
		if i > 0 && iv.Start.Before(ivs[i-1].End) {
			return errors.NewValidationError("busy intervals must be sorted and non-overlapping",
				map[string]interface{}{"participant_id": participantID})
		}
	}
	return nil
}
