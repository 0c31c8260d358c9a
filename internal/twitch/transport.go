package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"github.com/hanamilabs/frc-clock-bot/internal/domain"
	"github.com/hanamilabs/frc-clock-bot/internal/ports"
)

// Session is the blob this transport persists: the oauth token survives
// restarts so TWITCH_OAUTH_TOKEN only has to be provided once.
type Session struct {
	Login string `json:"login"`
	Token string `json:"token"`
}

const (
	initialRetryDelay = 2 * time.Second
	maxRetryDelay     = time.Minute
)

type Transport struct {
	logger     *slog.Logger
	username   string
	token      string
	channel    string
	retryDelay time.Duration
	connect    func(*twitch.Client) error

	mu     sync.RWMutex
	client *twitch.Client
}

func NewTransport(logger *slog.Logger, username string, token string, channel string) *Transport {
	return &Transport{
		logger:     logger,
		username:   strings.ToLower(username),
		token:      token,
		channel:    normalizeChannel(channel),
		retryDelay: initialRetryDelay,
		connect:    (*twitch.Client).Connect,
	}
}

// Run keeps the IRC connection up until ctx ends. Dropped connections are
// retried with a capped backoff; only a rejected login is returned.
func (t *Transport) Run(ctx context.Context, session []byte, events ports.TransportEvents) error {
	token, err := t.resolveToken(session)
	if err != nil {
		return err
	}

	var readyOnce sync.Once
	delay := t.retryDelay
	for {
		err := t.connectOnce(ctx, token, events, &readyOnce)
		if ctx.Err() != nil || errors.Is(err, twitch.ErrClientDisconnected) {
			return nil
		}
		if errors.Is(err, twitch.ErrLoginAuthenticationFailed) {
			return err
		}
		t.logger.Warn("twitch connection lost, reconnecting", "error", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func (t *Transport) connectOnce(ctx context.Context, token string, events ports.TransportEvents, readyOnce *sync.Once) error {
	client := twitch.NewClient(t.username, token)
	t.mu.Lock()
	t.client = client
	t.mu.Unlock()

	client.OnConnect(func() {
		t.handleConnect(token, events)
	})
	client.OnSelfJoinMessage(func(msg twitch.UserJoinMessage) {
		t.handleSelfJoin(msg, readyOnce, events)
	})
	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		if events.OnMessage == nil {
			return
		}
		events.OnMessage(ctx, toIncoming(msg))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			if err := client.Disconnect(); err != nil {
				t.logger.Debug("twitch disconnect", "error", err)
			}
		case <-done:
		}
	}()

	client.Join(t.channel)
	return t.connect(client)
}

func (t *Transport) handleConnect(token string, events ports.TransportEvents) {
	blob, err := json.Marshal(Session{Login: t.username, Token: token})
	if err != nil {
		t.logger.Error("encode twitch session failed", "error", err)
		return
	}
	if events.OnAuthenticated != nil {
		events.OnAuthenticated(blob)
	}
}

// handleSelfJoin reports ready the first time the bot lands in its channel,
// across reconnects.
func (t *Transport) handleSelfJoin(msg twitch.UserJoinMessage, readyOnce *sync.Once, events ports.TransportEvents) {
	if normalizeChannel(msg.Channel) != t.channel {
		return
	}
	readyOnce.Do(func() {
		if events.OnReady != nil {
			events.OnReady()
		}
	})
}

func toIncoming(msg twitch.PrivateMessage) domain.IncomingMessage {
	senderID := msg.User.ID
	if senderID == "" {
		senderID = msg.User.Name
	}
	return domain.IncomingMessage{
		SenderID: senderID,
		ChatID:   normalizeChannel(msg.Channel),
		Body:     msg.Message,
	}
}

// SendMessage posts to targetID as a channel name. Twitch IRC gives no
// delivery acknowledgement.
func (t *Transport) SendMessage(ctx context.Context, targetID string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()
	if client == nil {
		return errors.New("twitch client not connected")
	}
	client.Say(normalizeChannel(targetID), text)
	return nil
}

func (t *Transport) resolveToken(session []byte) (string, error) {
	if t.token != "" {
		return t.token, nil
	}
	if len(session) > 0 {
		var restored Session
		if err := json.Unmarshal(session, &restored); err == nil && restored.Token != "" {
			if restored.Login != "" && !strings.EqualFold(restored.Login, t.username) {
				return "", fmt.Errorf("stored twitch session belongs to %q, not %q", restored.Login, t.username)
			}
			return restored.Token, nil
		}
	}
	return "", errors.New("TWITCH_OAUTH_TOKEN is required when no twitch session is stored")
}

func normalizeChannel(channel string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(channel), "#"))
}

func (t *Transport) CheckConnectivity(_ context.Context) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.client == nil {
		return errors.New("twitch client not connected")
	}
	return nil
}
