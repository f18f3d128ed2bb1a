package service

import (
	"context"
	"fmt"

	ical "github.com/arran4/golang-ical"

	"schedpoll/pkg/errors"
)

// ExportICS renders a finalized poll's winning slot as an iCalendar payload
// so the chat gateway can attach it alongside the decision message.
func (s *SchedulerService) ExportICS(ctx context.Context, pollID string) (string, error) {
	state, err := s.store.Get(ctx, pollID)
	if err != nil {
		return "", err
	}
	if state.Result == nil {
		return "", errors.NewPollClosed(string(state.Status))
	}

	winner := state.Result.WinningCandidate

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//schedpoll//scheduling core//EN")

	event := cal.AddEvent(fmt.Sprintf("%s@schedpoll", state.ID))
	event.SetDtStampTime(state.Result.FinalizedAt)
	event.SetStartAt(winner.Start)
	event.SetEndAt(winner.End)
	event.SetSummary(state.Metadata.Title)
	if state.Metadata.Location != "" {
		event.SetLocation(state.Metadata.Location)
	}
	if state.Metadata.Description != "" {
		event.SetDescription(state.Metadata.Description)
	}

	return cal.Serialize(), nil
}
