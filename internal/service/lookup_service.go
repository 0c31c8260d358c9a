package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hanamilabs/frc-clock-bot/internal/domain"
	"github.com/hanamilabs/frc-clock-bot/internal/ports"
	"github.com/hanamilabs/frc-clock-bot/internal/tba"
	"github.com/hanamilabs/frc-clock-bot/internal/telemetry"
	"github.com/samber/lo"
)

type LookupService struct {
	logger    *slog.Logger
	resolver  *Resolver
	directory ports.TeamDirectory
	sender    ports.ChatSender
	recorder  ports.TickRecorder
	reporter  ports.ErrorReporter
	metrics   *telemetry.Metrics
	district  string
	allowList []int
	groupID   string
	sendDelay time.Duration
	now       func() time.Time
}

type LookupOptions struct {
	District  string
	AllowList []int
	GroupID   string
	SendDelay time.Duration
}

func NewLookupService(
	logger *slog.Logger,
	resolver *Resolver,
	directory ports.TeamDirectory,
	sender ports.ChatSender,
	recorder ports.TickRecorder,
	reporter ports.ErrorReporter,
	metrics *telemetry.Metrics,
	opts LookupOptions,
) *LookupService {
	return &LookupService{
		logger:    logger,
		resolver:  resolver,
		directory: directory,
		sender:    sender,
		recorder:  recorder,
		reporter:  reporter,
		metrics:   metrics,
		district:  opts.District,
		allowList: opts.AllowList,
		groupID:   opts.GroupID,
		sendDelay: opts.SendDelay,
		now:       time.Now,
	}
}

// Tick is the scheduled entry point. Every failure is logged and swallowed.
func (s *LookupService) Tick(ctx context.Context) {
	s.RunAt(ctx, s.now(), false)
}

func (s *LookupService) RunAt(ctx context.Context, now time.Time, dryRun bool) domain.TickRun {
	run := domain.TickRun{ID: uuid.NewString(), At: now.UTC(), Candidate: s.resolver.Resolve(now)}
	logger := s.logger.With("tick_id", run.ID, "candidate", run.Candidate)
	logger.Info("checking for FRC team")

	run = s.lookup(ctx, logger, run, dryRun)

	s.metrics.ObserveTick(string(run.Outcome))
	if s.recorder != nil {
		if err := s.recorder.RecordTick(ctx, run); err != nil {
			logger.Warn("record tick failed", "error", err)
		}
	}
	return run
}

func (s *LookupService) lookup(ctx context.Context, logger *slog.Logger, run domain.TickRun, dryRun bool) domain.TickRun {
	keys, err := s.directory.DistrictTeamKeys(ctx, s.district)
	if err != nil {
		return s.fail(logger, run, fmt.Errorf("fetch district %s teams: %w", s.district, err))
	}

	if !s.isValid(run.Candidate, keys) {
		logger.Info("team is not in the district or allow-list", "district", s.district)
		run.Outcome = domain.TickInvalid
		return run
	}

	team, found, err := s.directory.Team(ctx, run.Candidate)
	if err != nil && !tba.IsNotFound(err) {
		return s.fail(logger, run, fmt.Errorf("fetch team %s: %w", run.Candidate, err))
	}
	if !found {
		logger.Info("no FRC team found for the current time")
		run.Outcome = domain.TickNotFound
		return run
	}

	run.TeamNumber = team.Number
	run.Nickname = team.Nickname
	run.Message = FormatTeamMessage(team)
	if dryRun {
		run.Outcome = domain.TickDryRun
		return run
	}

	if err := s.send(ctx, run.Message); err != nil {
		s.metrics.ObserveSendFailure("lookup")
		return s.fail(logger, run, fmt.Errorf("send team message: %w", err))
	}
	logger.Info("team message sent", "group_id", s.groupID, "team_number", team.Number)
	run.Outcome = domain.TickAnnounced
	return run
}

// isValid mirrors the original parseInt semantics: leading zeros are dropped
// before the allow-list lookup.
func (s *LookupService) isValid(candidate string, keys []string) bool {
	if lo.Contains(keys, "frc"+candidate) {
		return true
	}
	number, err := strconv.Atoi(candidate)
	if err != nil {
		return false
	}
	return lo.Contains(s.allowList, number)
}

func (s *LookupService) send(ctx context.Context, message string) error {
	if s.sendDelay > 0 {
		timer := time.NewTimer(s.sendDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return s.sender.SendMessage(ctx, s.groupID, message)
}

func (s *LookupService) fail(logger *slog.Logger, run domain.TickRun, err error) domain.TickRun {
	logger.Error("error fetching FRC team data", "error", err)
	if s.reporter != nil {
		s.reporter.CaptureError(err, map[string]string{"component": "lookup", "candidate": run.Candidate})
	}
	run.Outcome = domain.TickFailed
	run.Error = err.Error()
	return run
}

func FormatTeamMessage(team domain.Team) string {
	return fmt.Sprintf("FRC Team: %s. \n Team Number: %d", team.Nickname, team.Number)
}
