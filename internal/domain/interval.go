package domain

import "time"

// BusyInterval is a half-open UTC range [Start, End) during which a
// participant is unavailable. The calendar collaborator supplies these
// pre-sorted and non-overlapping per participant.
type BusyInterval struct {
	ParticipantID string    `json:"participant_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
}

// Overlaps reports whether the interval shares any open sub-interval with
// [start, end). Touching endpoints do not count as overlap.
func (iv BusyInterval) Overlaps(start, end time.Time) bool {
	return iv.Start.Before(end) && start.Before(iv.End)
}

// TimeWindow bounds a candidate search. Granularity is the step size for
// sliding the window; zero means the configured default applies.
type TimeWindow struct {
	SearchStart time.Time     `json:"search_start"`
	SearchEnd   time.Time     `json:"search_end"`
	Granularity time.Duration `json:"granularity,omitempty"`

	// Optional daily bounds, hours in UTC. A slot must start at or after
	// DayStartHour and end at or before DayEndHour of the same day.
	DayStartHour *int `json:"day_start_hour,omitempty"`
	DayEndHour   *int `json:"day_end_hour,omitempty"`

	// WeekdaysOnly skips Saturday and Sunday slots
	WeekdaysOnly bool `json:"weekdays_only,omitempty"`
}
