package schedule

import (
	"fmt"
	"sort"
	"time"

	"schedpoll/internal/domain"
	"schedpoll/pkg/errors"
)

// DefaultGranularity is the slide step used when the window does not set one
const DefaultGranularity = 30 * time.Minute

// DefaultMaxCandidates caps the ranked list when the caller does not
const DefaultMaxCandidates = 3

// Options tunes candidate generation
type Options struct {
	// Duration is the required meeting length
	Duration time.Duration

	// MinAvailable is the minimum number of participants that must be free
	// for a slot to qualify; zero means all participants
	MinAvailable int

	// MaxCandidates truncates the ranked list; zero means the default of 3
	MaxCandidates int
}

// GenerateCandidates slides a duration-sized window across the search range
// at the window's granularity and ranks qualifying slots by availability.
// The result is deterministic: identical inputs always produce an identical
// ordered list.
func GenerateCandidates(window domain.TimeWindow, participantIDs []string, agg *Aggregator, opts Options) ([]domain.CandidateSlot, error) {
	if !window.SearchEnd.After(window.SearchStart) {
		return nil, errors.NewEmptyWindow()
	}
	if opts.Duration <= 0 {
		return nil, errors.NewInvalidDuration()
	}

	granularity := window.Granularity
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	maxCandidates := opts.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}

	total := len(participantIDs)
	minAvailable := opts.MinAvailable
	if minAvailable <= 0 || minAvailable > total {
		minAvailable = total
	}

	members := make(map[string]struct{}, total)
	for _, id := range participantIDs {
		members[id] = struct{}{}
	}

	var kept []domain.CandidateSlot
	for start := window.SearchStart; !start.Add(opts.Duration).After(window.SearchEnd); start = start.Add(granularity) {
		end := start.Add(opts.Duration)
		if !withinDayBounds(window, start, end) {
			continue
		}

		var unavailable []string
		for _, id := range agg.BusyDuring(start, end) {
			if _, ok := members[id]; ok {
				unavailable = append(unavailable, id)
			}
		}

		available := total - len(unavailable)
		if available < minAvailable {
			continue
		}

		kept = append(kept, domain.CandidateSlot{
			Start:                     start,
			End:                       end,
			AvailableCount:            available,
			UnavailableParticipantIDs: unavailable,
		})
	}

	// rank by availability, then chronologically
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].AvailableCount != kept[j].AvailableCount {
			return kept[i].AvailableCount > kept[j].AvailableCount
		}
		return kept[i].Start.Before(kept[j].Start)
	})

	if len(kept) > maxCandidates {
		kept = kept[:maxCandidates]
	}
	for i := range kept {
		kept[i].Rank = i
		kept[i].ID = fmt.Sprintf("c%d", i)
	}

	return kept, nil
}

// withinDayBounds checks the optional per-day hour bounds and the weekday
// filter. With hour bounds set, a slot that crosses midnight never qualifies.
func withinDayBounds(w domain.TimeWindow, start, end time.Time) bool {
	if w.WeekdaysOnly {
		if wd := start.Weekday(); wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	if w.DayStartHour == nil && w.DayEndHour == nil {
		return true
	}

	startHour := 0
	if w.DayStartHour != nil {
		startHour = *w.DayStartHour
	}
	endHour := 24
	if w.DayEndHour != nil {
		endHour = *w.DayEndHour
	}

	y, m, d := start.UTC().Date()
	dayStart := time.Date(y, m, d, startHour, 0, 0, 0, time.UTC)
	dayEnd := time.Date(y, m, d, endHour, 0, 0, 0, time.UTC)

	return !start.Before(dayStart) && !end.After(dayEnd)
}
