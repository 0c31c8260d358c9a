package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hanamilabs/frc-clock-bot/internal/domain"
	"github.com/hanamilabs/frc-clock-bot/internal/logging"
	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	logger *slog.Logger
	cron   *cron.Cron
}

// NewScheduler registers tick on spec. With OverlapAllow a slow tick may run
// alongside the next one; OverlapSkip drops a tick while the previous is in flight.
func NewScheduler(ctx context.Context, logger *slog.Logger, loc *time.Location, spec string, overlap domain.OverlapPolicy, tick func(context.Context)) (*Scheduler, error) {
	cronLogger := logging.CronLogger{Logger: logger}
	opts := []cron.Option{cron.WithLocation(loc), cron.WithLogger(cronLogger)}
	if overlap == domain.OverlapSkip {
		opts = append(opts, cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	} else {
		opts = append(opts, cron.WithChain(cron.Recover(cronLogger)))
	}
	c := cron.New(opts...)

	if _, err := c.AddFunc(spec, func() { tick(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return &Scheduler{logger: logger, cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("tick scheduler started")
}

// Stop waits for running ticks to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
