package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hanamilabs/frc-clock-bot/internal/domain"
	"github.com/hanamilabs/frc-clock-bot/internal/ports"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	maxPollBackoff = time.Minute
)

type API struct {
	logger          *slog.Logger
	baseURL         string
	botToken        string
	client          *http.Client
	pollingInterval time.Duration
	workers         int
}

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      User   `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
	Caption   string `json:"caption"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsBot    bool   `json:"is_bot"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type envelope struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func NewAPI(logger *slog.Logger, botToken string, pollingInterval time.Duration) *API {
	if pollingInterval <= 0 {
		pollingInterval = 2 * time.Second
	}
	return &API{
		logger:          logger,
		baseURL:         defaultBaseURL,
		botToken:        botToken,
		client:          &http.Client{Timeout: pollingInterval + 30*time.Second},
		pollingInterval: pollingInterval,
		workers:         8,
	}
}

func (a *API) WithBaseURL(baseURL string) *API {
	a.baseURL = strings.TrimRight(baseURL, "/")
	return a
}

// Run authenticates with getMe, then long-polls updates until ctx ends. The
// raw getMe result is reported as the session blob. A restored session is
// only used for logging: the bot token is the credential.
func (a *API) Run(ctx context.Context, session []byte, events ports.TransportEvents) error {
	if len(session) > 0 {
		var previous User
		if err := json.Unmarshal(session, &previous); err == nil && previous.Username != "" {
			a.logger.Info("resuming telegram session", "username", previous.Username)
		}
	}

	me, err := a.call(ctx, "getMe", nil)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	if events.OnAuthenticated != nil {
		events.OnAuthenticated(me)
	}
	if err := a.deleteWebhook(ctx); err != nil {
		a.logger.Warn("delete webhook failed before polling", "error", err)
	}
	if events.OnReady != nil {
		events.OnReady()
	}

	return a.PollUpdates(ctx, func(ctx context.Context, update Update) {
		msg, ok := toIncoming(update)
		if !ok || events.OnMessage == nil {
			return
		}
		events.OnMessage(ctx, msg)
	})
}

func (a *API) SendMessage(ctx context.Context, targetID string, text string) error {
	body := map[string]any{"chat_id": targetID, "text": text}
	_, err := a.call(ctx, "sendMessage", body)
	return err
}

func (a *API) CheckConnectivity(ctx context.Context) error {
	_, err := a.call(ctx, "getMe", nil)
	return err
}

// PollUpdates only returns once ctx ends. Failed polls are logged and retried
// with a backoff capped at maxPollBackoff.
func (a *API) PollUpdates(ctx context.Context, handler func(context.Context, Update)) error {
	var offset int64
	workers := make(chan struct{}, a.workers)
	backoff := a.pollingInterval
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		updates, err := a.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.logger.Warn("telegram getUpdates failed, retrying", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxPollBackoff)
			continue
		}
		backoff = a.pollingInterval

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			workers <- struct{}{}
			go func(u Update) {
				defer func() { <-workers }()
				handler(ctx, u)
			}(update)
		}

		if len(updates) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(a.pollingInterval):
			}
		}
	}
}

func toIncoming(update Update) (domain.IncomingMessage, bool) {
	if update.Message == nil || update.Message.Chat.ID == 0 {
		return domain.IncomingMessage{}, false
	}
	body := update.Message.Text
	if body == "" {
		body = update.Message.Caption
	}
	if body == "" {
		return domain.IncomingMessage{}, false
	}
	return domain.IncomingMessage{
		SenderID: strconv.FormatInt(update.Message.From.ID, 10),
		ChatID:   strconv.FormatInt(update.Message.Chat.ID, 10),
		Body:     body,
	}, true
}

func (a *API) deleteWebhook(ctx context.Context) error {
	_, err := a.call(ctx, "deleteWebhook", map[string]bool{"drop_pending_updates": false})
	return err
}

func (a *API) getUpdates(ctx context.Context, offset int64) ([]Update, error) {
	body := map[string]any{
		"offset":          offset,
		"timeout":         longPollSeconds(a.pollingInterval),
		"allowed_updates": []string{"message"},
	}
	raw, err := a.call(ctx, "getUpdates", body)
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func longPollSeconds(interval time.Duration) int {
	seconds := int(interval / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	if seconds > 50 {
		seconds = 50
	}
	return seconds
}

// call performs a Bot API method and returns the "result" field.
func (a *API) call(ctx context.Context, method string, body any) (json.RawMessage, error) {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(raw)
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", a.baseURL, a.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, readErr := io.ReadAll(res.Body)
	if readErr != nil {
		return nil, readErr
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = fmt.Sprintf("telegram status %d", res.StatusCode)
		}
		return nil, fmt.Errorf("%s: %s", method, msg)
	}
	if !env.OK || res.StatusCode >= 400 {
		reason := strings.TrimSpace(env.Description)
		if reason == "" {
			reason = fmt.Sprintf("telegram status %d", res.StatusCode)
		}
		return nil, fmt.Errorf("%s: %s", method, reason)
	}
	return env.Result, nil
}
