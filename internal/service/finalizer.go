package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"schedpoll/internal/domain"
	"schedpoll/pkg/errors"
)

// registerWinner issues one calendar registration per participant for the
// winning slot, with bounded parallelism and a per-call timeout. Each leg is
// independent: a failure for one participant never blocks or rolls back the
// others. Nothing is retried here; retry policy belongs to the caller.
func (s *SchedulerService) registerWinner(ctx context.Context, participantIDs []string, winner domain.CandidateSlot, meta domain.EventMetadata) map[string]domain.RegistrationOutcome {
	var (
		mu       sync.Mutex
		outcomes = make(map[string]domain.RegistrationOutcome, len(participantIDs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.RegisterConcurrency)

	for _, participantID := range participantIDs {
		participantID := participantID
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, s.opts.CalendarCallTimeout)
			defer cancel()

			eventID, err := s.registrar.RegisterEvent(callCtx, participantID, winner, meta)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				regErr := errors.NewRegistrationFailure(participantID, err)
				s.logger.WithError(regErr).
					WithField("participant_id", participantID).
					Warn("calendar registration failed")
				outcomes[participantID] = domain.RegistrationOutcome{Error: regErr.Error()}
				return nil
			}
			outcomes[participantID] = domain.RegistrationOutcome{EventID: eventID}
			return nil
		})
	}
	// legs never return errors; outcomes carry per-participant failures
	_ = g.Wait()

	return outcomes
}
