package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hanamilabs/frc-clock-bot/internal/domain"
	"github.com/hanamilabs/frc-clock-bot/internal/ports"
	"github.com/hanamilabs/frc-clock-bot/internal/telemetry"
	"github.com/hanamilabs/frc-clock-bot/internal/triggers"
)

type ResponderService struct {
	logger   *slog.Logger
	matcher  *triggers.Matcher
	sender   ports.ChatSender
	reporter ports.ErrorReporter
	metrics  *telemetry.Metrics
	groupID  string
	ignoreID string
	queue    *sequenceQueue
}

func NewResponderService(
	logger *slog.Logger,
	matcher *triggers.Matcher,
	sender ports.ChatSender,
	reporter ports.ErrorReporter,
	metrics *telemetry.Metrics,
	groupID string,
	ignoreID string,
) *ResponderService {
	return &ResponderService{
		logger:   logger,
		matcher:  matcher,
		sender:   sender,
		reporter: reporter,
		metrics:  metrics,
		groupID:  groupID,
		ignoreID: ignoreID,
		queue:    newSequenceQueue(),
	}
}

// HandleMessage always replies to the configured group, never to the chat the
// message came from.
func (s *ResponderService) HandleMessage(ctx context.Context, msg domain.IncomingMessage) {
	if s.ignoreID != "" && msg.SenderID == s.ignoreID {
		return
	}

	for _, rule := range s.matcher.Match(msg.Body) {
		err := s.queue.Run(ctx, s.groupID, func(ctx context.Context) error {
			return s.sendSequence(ctx, rule)
		})
		if err != nil {
			s.logger.Error("reply sequence failed", "rule", rule.Name, "sender_id", msg.SenderID, "error", err)
			s.metrics.ObserveSendFailure("responder")
			if s.reporter != nil {
				s.reporter.CaptureError(err, map[string]string{"component": "responder", "rule": rule.Name})
			}
			continue
		}
		s.metrics.ObserveReply(rule.Name)
		s.logger.Debug("reply sequence sent", "rule", rule.Name, "lines", len(rule.Replies))
	}
}

func (s *ResponderService) sendSequence(ctx context.Context, rule triggers.Rule) error {
	for i, line := range rule.Replies {
		if err := s.sender.SendMessage(ctx, s.groupID, line); err != nil {
			return fmt.Errorf("line %d of %d: %w", i+1, len(rule.Replies), err)
		}
	}
	return nil
}
