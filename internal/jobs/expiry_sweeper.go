// Package jobs hosts the scheduled maintenance work of the ledger.
package jobs

import (
	"context"
	"log/slog"
	"time"

	portssvc "github.com/pixamint/credit_ledger_app/internal/core/ports/services"
	"github.com/robfig/cron/v3"
)

// ExpirySweeper periodically flips lapsed active grants to expired status.
// Consumption and balance queries evaluate expiry at query time regardless;
// the sweeper keeps audit listings and status counters honest.
type ExpirySweeper struct {
	cron      *cron.Cron
	creditSvc portssvc.CreditRevokerSvc
	logger    *slog.Logger
	schedule  string
}

// NewExpirySweeper creates the sweeper with its own cron runner (UTC, with
// seconds precision).
func NewExpirySweeper(creditSvc portssvc.CreditRevokerSvc, schedule string, logger *slog.Logger) *ExpirySweeper {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)
	return &ExpirySweeper{
		cron:      c,
		creditSvc: creditSvc,
		logger:    logger,
		schedule:  schedule,
	}
}

// Start registers the sweep and begins the schedule.
func (s *ExpirySweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Expiry sweeper started", slog.String("schedule", s.schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *ExpirySweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Expiry sweeper stopped")
}

func (s *ExpirySweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	count, err := s.creditSvc.ExpireLapsedCredits(ctx)
	if err != nil {
		s.logger.Error("Expiry sweep failed", slog.String("error", err.Error()))
		return
	}
	if count > 0 {
		s.logger.Info("Expiry sweep completed", slog.Int64("expired", count))
	}
}
