package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"schedpoll/internal/domain"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func busy(participantID string, start, end time.Time) domain.BusyInterval {
	return domain.BusyInterval{ParticipantID: participantID, Start: start, End: end}
}

func TestBusyDuring(t *testing.T) {
	agg := NewAggregator(at(9, 0), at(13, 0), map[string][]domain.BusyInterval{
		"alice": {busy("alice", at(10, 0), at(11, 0))},
		"bob":   {busy("bob", at(10, 30), at(12, 0))},
		"carol": {},
	})
	assert.Empty(t, agg.Warnings())

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []string
	}{
		{
			name:  "before any interval",
			start: at(9, 0),
			end:   at(10, 0),
			want:  nil,
		},
		{
			name:  "overlapping both",
			start: at(10, 30),
			end:   at(11, 30),
			want:  []string{"alice", "bob"},
		},
		{
			name:  "touching end does not overlap",
			start: at(11, 0),
			end:   at(12, 0),
			want:  []string{"bob"},
		},
		{
			name:  "touching start does not overlap",
			start: at(12, 0),
			end:   at(13, 0),
			want:  nil,
		},
		{
			name:  "partial overlap at slot end",
			start: at(9, 30),
			end:   at(10, 30),
			want:  []string{"alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, agg.BusyDuring(tt.start, tt.end))
		})
	}
}

func TestBusyDuringSortsParticipants(t *testing.T) {
	agg := NewAggregator(at(9, 0), at(13, 0), map[string][]domain.BusyInterval{
		"zed":   {busy("zed", at(9, 0), at(13, 0))},
		"alice": {busy("alice", at(9, 0), at(13, 0))},
		"mike":  {busy("mike", at(9, 0), at(13, 0))},
	})

	assert.Equal(t, []string{"alice", "mike", "zed"}, agg.BusyDuring(at(10, 0), at(11, 0)))
}

func TestMalformedIntervalsSubstituteBusy(t *testing.T) {
	tests := []struct {
		name      string
		intervals []domain.BusyInterval
	}{
		{
			name:      "end before start",
			intervals: []domain.BusyInterval{busy("alice", at(11, 0), at(10, 0))},
		},
		{
			name:      "zero length",
			intervals: []domain.BusyInterval{busy("alice", at(10, 0), at(10, 0))},
		},
		{
			name: "unsorted sequence",
			intervals: []domain.BusyInterval{
				busy("alice", at(11, 0), at(12, 0)),
				busy("alice", at(9, 0), at(10, 0)),
			},
		},
		{
			name: "overlapping sequence",
			intervals: []domain.BusyInterval{
				busy("alice", at(9, 0), at(11, 0)),
				busy("alice", at(10, 30), at(12, 0)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(at(9, 0), at(13, 0), map[string][]domain.BusyInterval{
				"alice": tt.intervals,
			})

			warnings := agg.Warnings()
			assert.Len(t, warnings, 1)
			assert.Equal(t, "alice", warnings[0].ParticipantID)

			// substituted busy everywhere, even where no interval claimed
			assert.Equal(t, []string{"alice"}, agg.BusyDuring(at(12, 30), at(13, 0)))
		})
	}
}

func TestMarkBusyIsIdempotent(t *testing.T) {
	agg := NewAggregator(at(9, 0), at(13, 0), map[string][]domain.BusyInterval{
		"alice": {busy("alice", at(10, 0), at(11, 0))},
	})

	agg.MarkBusy("alice", "fetch failed")
	agg.MarkBusy("alice", "fetch failed again")

	assert.Len(t, agg.Warnings(), 1)
	assert.Equal(t, []string{"alice"}, agg.BusyDuring(at(12, 0), at(13, 0)))
}
