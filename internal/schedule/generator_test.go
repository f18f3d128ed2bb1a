package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedpoll/internal/domain"
	"schedpoll/pkg/errors"
)

func window(start, end time.Time, granularity time.Duration) domain.TimeWindow {
	return domain.TimeWindow{SearchStart: start, SearchEnd: end, Granularity: granularity}
}

func TestGenerateCandidatesFindsCommonFreeSlots(t *testing.T) {
	// three participants, a four hour window: alice busy 10:00-11:00,
	// bob busy 10:30-12:00, carol free all day
	participants := []string{"alice", "bob", "carol"}
	agg := NewAggregator(at(9, 0), at(13, 0), map[string][]domain.BusyInterval{
		"alice": {busy("alice", at(10, 0), at(11, 0))},
		"bob":   {busy("bob", at(10, 30), at(12, 0))},
		"carol": {},
	})

	got, err := GenerateCandidates(window(at(9, 0), at(13, 0), 30*time.Minute), participants, agg, Options{
		Duration:     time.Hour,
		MinAvailable: 3,
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "c0", got[0].ID)
	assert.Equal(t, at(9, 0), got[0].Start)
	assert.Equal(t, at(10, 0), got[0].End)
	assert.Equal(t, 3, got[0].AvailableCount)
	assert.Equal(t, 0, got[0].Rank)

	assert.Equal(t, "c1", got[1].ID)
	assert.Equal(t, at(12, 0), got[1].Start)
	assert.Equal(t, at(13, 0), got[1].End)
	assert.Equal(t, 1, got[1].Rank)
}

func TestGenerateCandidatesRanking(t *testing.T) {
	// later slot has everyone free, earlier slot only two of three
	participants := []string{"alice", "bob", "carol"}
	agg := NewAggregator(at(9, 0), at(12, 0), map[string][]domain.BusyInterval{
		"alice": {busy("alice", at(9, 0), at(10, 0))},
	})

	got, err := GenerateCandidates(window(at(9, 0), at(12, 0), time.Hour), participants, agg, Options{
		Duration:     time.Hour,
		MinAvailable: 2,
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	// full availability wins over chronology
	assert.Equal(t, at(10, 0), got[0].Start)
	assert.Equal(t, 3, got[0].AvailableCount)
	assert.Equal(t, at(11, 0), got[1].Start)
	assert.Equal(t, 3, got[1].AvailableCount)
	// the partially available slot ranks last and names who is missing
	assert.Equal(t, at(9, 0), got[2].Start)
	assert.Equal(t, 2, got[2].AvailableCount)
	assert.Equal(t, []string{"alice"}, got[2].UnavailableParticipantIDs)
}

func TestGenerateCandidatesTruncation(t *testing.T) {
	participants := []string{"alice"}
	agg := NewAggregator(at(9, 0), at(17, 0), map[string][]domain.BusyInterval{"alice": {}})

	got, err := GenerateCandidates(window(at(9, 0), at(17, 0), 30*time.Minute), participants, agg, Options{
		Duration: time.Hour,
	})
	require.NoError(t, err)

	// default cap of three, ids reassigned after ranking
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c0", "c1", "c2"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, at(9, 0), got[0].Start)
	assert.Equal(t, at(9, 30), got[1].Start)
	assert.Equal(t, at(10, 0), got[2].Start)
}

func TestGenerateCandidatesMinAvailableDefaultsToAll(t *testing.T) {
	participants := []string{"alice", "bob"}
	agg := NewAggregator(at(9, 0), at(11, 0), map[string][]domain.BusyInterval{
		"alice": {busy("alice", at(9, 0), at(10, 0))},
	})

	got, err := GenerateCandidates(window(at(9, 0), at(11, 0), time.Hour), participants, agg, Options{
		Duration: time.Hour,
	})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, at(10, 0), got[0].Start)
	assert.Equal(t, 2, got[0].AvailableCount)
}

func TestGenerateCandidatesValidation(t *testing.T) {
	agg := NewAggregator(at(9, 0), at(13, 0), nil)

	_, err := GenerateCandidates(window(at(13, 0), at(9, 0), time.Hour), []string{"alice"}, agg, Options{Duration: time.Hour})
	assert.True(t, errors.IsType(err, errors.ErrorTypeEmptyWindow))

	_, err = GenerateCandidates(window(at(9, 0), at(9, 0), time.Hour), []string{"alice"}, agg, Options{Duration: time.Hour})
	assert.True(t, errors.IsType(err, errors.ErrorTypeEmptyWindow))

	_, err = GenerateCandidates(window(at(9, 0), at(13, 0), time.Hour), []string{"alice"}, agg, Options{Duration: 0})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidDuration))
}

func TestGenerateCandidatesNoQualifyingSlot(t *testing.T) {
	participants := []string{"alice"}
	agg := NewAggregator(at(9, 0), at(11, 0), map[string][]domain.BusyInterval{
		"alice": {busy("alice", at(9, 0), at(11, 0))},
	})

	got, err := GenerateCandidates(window(at(9, 0), at(11, 0), 30*time.Minute), participants, agg, Options{
		Duration: time.Hour,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGenerateCandidatesDurationLongerThanWindow(t *testing.T) {
	agg := NewAggregator(at(9, 0), at(10, 0), nil)

	got, err := GenerateCandidates(window(at(9, 0), at(10, 0), 30*time.Minute), []string{"alice"}, agg, Options{
		Duration: 2 * time.Hour,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGenerateCandidatesDayHourBounds(t *testing.T) {
	dayStart, dayEnd := 9, 12
	w := domain.TimeWindow{
		SearchStart:  time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		SearchEnd:    time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		Granularity:  time.Hour,
		DayStartHour: &dayStart,
		DayEndHour:   &dayEnd,
	}
	agg := NewAggregator(w.SearchStart, w.SearchEnd, nil)

	got, err := GenerateCandidates(w, []string{"alice"}, agg, Options{
		Duration:      time.Hour,
		MaxCandidates: 10,
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, at(9, 0), got[0].Start)
	assert.Equal(t, at(11, 0), got[2].Start)
	// 11:00-12:00 is the last slot that still ends within bounds
	assert.Equal(t, at(12, 0), got[2].End)
}

func TestGenerateCandidatesWeekdaysOnly(t *testing.T) {
	// window spans Saturday March 7th through Monday March 9th 2026
	w := domain.TimeWindow{
		SearchStart:  time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC),
		SearchEnd:    time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC),
		Granularity:  24 * time.Hour,
		WeekdaysOnly: true,
	}
	agg := NewAggregator(w.SearchStart, w.SearchEnd, nil)

	got, err := GenerateCandidates(w, []string{"alice"}, agg, Options{
		Duration:      time.Hour,
		MaxCandidates: 10,
	})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, time.Monday, got[0].Start.Weekday())
}
