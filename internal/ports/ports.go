package ports

import (
	"context"

	"github.com/hanamilabs/frc-clock-bot/internal/domain"
)

type ChatSender interface {
	SendMessage(ctx context.Context, targetID string, text string) error
}

// TransportEvents mirrors the qr/authenticated/ready/message events of the chat
// client. Nil callbacks are skipped.
type TransportEvents struct {
	OnQR            func(code string)
	OnAuthenticated func(session []byte)
	OnReady         func()
	OnMessage       func(ctx context.Context, msg domain.IncomingMessage)
}

type Transport interface {
	ChatSender
	Run(ctx context.Context, session []byte, events TransportEvents) error
}

// SessionStore keeps the transport session byte for byte. Stores never
// interpret the blob.
type SessionStore interface {
	LoadSession(ctx context.Context) ([]byte, bool, error)
	SaveSession(ctx context.Context, blob []byte) error
}

type TeamDirectory interface {
	DistrictTeamKeys(ctx context.Context, district string) ([]string, error)
	Team(ctx context.Context, number string) (domain.Team, bool, error)
}

type TickRecorder interface {
	RecordTick(ctx context.Context, run domain.TickRun) error
}

type TickHistory interface {
	RecentTicks(ctx context.Context, limit int) ([]domain.TickRun, error)
}

type ErrorReporter interface {
	CaptureError(err error, tags map[string]string)
}
