package service

import (
	"context"
	"log/slog"

	"github.com/hanamilabs/frc-clock-bot/internal/ports"
)

// SessionService hands the stored session blob to the transport at start-up
// and persists whatever blob the transport reports after authenticating. The
// blob is never inspected here.
type SessionService struct {
	logger *slog.Logger
	store  ports.SessionStore
}

func NewSessionService(logger *slog.Logger, store ports.SessionStore) *SessionService {
	return &SessionService{logger: logger, store: store}
}

// Restore returns nil when there is no usable prior session; a broken store is
// not fatal.
func (s *SessionService) Restore(ctx context.Context) []byte {
	blob, ok, err := s.store.LoadSession(ctx)
	if err != nil {
		s.logger.Warn("stored session unreadable; starting without one", "error", err)
		return nil
	}
	if !ok {
		s.logger.Info("no stored session")
		return nil
	}
	s.logger.Info("restored session", "bytes", len(blob))
	return blob
}

func (s *SessionService) Persist(ctx context.Context, blob []byte) {
	if err := s.store.SaveSession(ctx, blob); err != nil {
		s.logger.Error("persist session failed", "error", err)
		return
	}
	s.logger.Info("authenticated; session saved", "bytes", len(blob))
}
