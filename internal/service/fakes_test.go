package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/hanamilabs/frc-clock-bot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	targetID string
	text     string
}

type testSender struct {
	mu     sync.Mutex
	sent   []sentMessage
	failOn map[string]bool
}

func (s *testSender) SendMessage(_ context.Context, targetID string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[text] {
		return errors.New("send rejected")
	}
	s.sent = append(s.sent, sentMessage{targetID: targetID, text: text})
	return nil
}

func (s *testSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.text)
	}
	return out
}

type testDirectory struct {
	keys      []string
	keysErr   error
	teams     map[string]domain.Team
	teamErr   error
	teamCalls []string
}

func (d *testDirectory) DistrictTeamKeys(context.Context, string) ([]string, error) {
	if d.keysErr != nil {
		return nil, d.keysErr
	}
	return d.keys, nil
}

func (d *testDirectory) Team(_ context.Context, number string) (domain.Team, bool, error) {
	d.teamCalls = append(d.teamCalls, number)
	if d.teamErr != nil {
		return domain.Team{}, false, d.teamErr
	}
	team, ok := d.teams[number]
	return team, ok, nil
}

type testRecorder struct {
	runs []domain.TickRun
}

func (r *testRecorder) RecordTick(_ context.Context, run domain.TickRun) error {
	r.runs = append(r.runs, run)
	return nil
}

type testReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *testReporter) CaptureError(err error, _ map[string]string) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}
