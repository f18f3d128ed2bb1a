package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"schedpoll/pkg/logger"
)

// ExpirySweeper periodically marks open polls past their deadline as
// expired. Lazy expiry on access already guarantees no vote is accepted
// after the deadline; the sweeper keeps stored state and the open-poll
// index from lagging indefinitely behind.
type ExpirySweeper struct {
	scheduler *SchedulerService
	cron      *cron.Cron
	log       *logger.Logger
}

// NewExpirySweeper schedules the sweep with a cron expression such as
// "@every 1m"
func NewExpirySweeper(scheduler *SchedulerService, schedule string, log *logger.Logger) (*ExpirySweeper, error) {
	s := &ExpirySweeper{
		scheduler: scheduler,
		cron:      cron.New(),
		log:       log,
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid expiry sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins the sweep schedule
func (s *ExpirySweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ExpirySweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := s.scheduler.ExpireDuePolls(ctx)
	if err != nil {
		s.log.WithError(err).Warn("expiry sweep failed")
		return
	}
	if expired > 0 {
		s.log.WithField("expired", expired).Info("expiry sweep marked polls expired")
	}
}
