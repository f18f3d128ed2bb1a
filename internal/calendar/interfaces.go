package calendar

import (
	"context"
	"time"

	"schedpoll/internal/domain"
)

// BusyIntervalProvider supplies a participant's busy intervals inside a
// window. Implementations must return intervals pre-sorted, non-overlapping
// and in UTC.
type BusyIntervalProvider interface {
	BusyIntervals(ctx context.Context, participantID string, windowStart, windowEnd time.Time) ([]domain.BusyInterval, error)
}

// EventRegistrar registers the winning slot on a participant's calendar and
// returns the created event id. One call per participant per finalized poll;
// retries are the caller's concern.
type EventRegistrar interface {
	RegisterEvent(ctx context.Context, participantID string, slot domain.CandidateSlot, meta domain.EventMetadata) (string, error)
}

// Clock abstracts time.Now for deadline evaluation
type Clock interface {
	Now() time.Time
}
