package telemetry

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

type SentryReporter struct {
	enabled bool
}

func InitSentry(logger *slog.Logger, dsn string, environment string, release string) *SentryReporter {
	if dsn == "" {
		logger.Info("SENTRY_DSN empty; error reporting disabled")
		return &SentryReporter{}
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			event.User = sentry.User{}
			return event
		},
	})
	if err != nil {
		logger.Warn("sentry init failed; error reporting disabled", "error", err)
		return &SentryReporter{}
	}
	logger.Info("sentry initialized", "environment", environment)
	return &SentryReporter{enabled: true}
}

func (r *SentryReporter) CaptureError(err error, tags map[string]string) {
	if r == nil || !r.enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

func (r *SentryReporter) Flush() {
	if r == nil || !r.enabled {
		return
	}
	sentry.Flush(2 * time.Second)
}
