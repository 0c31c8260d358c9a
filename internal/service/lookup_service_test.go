package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/hanamilabs/frc-clock-bot/internal/config"
	"github.com/hanamilabs/frc-clock-bot/internal/domain"
	"github.com/hanamilabs/frc-clock-bot/internal/tba"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupFixture struct {
	service   *LookupService
	directory *testDirectory
	sender    *testSender
	recorder  *testRecorder
	reporter  *testReporter
}

func newLookupFixture(directory *testDirectory, delay time.Duration) lookupFixture {
	f := lookupFixture{
		directory: directory,
		sender:    &testSender{},
		recorder:  &testRecorder{},
		reporter:  &testReporter{},
	}
	f.service = NewLookupService(
		discardLogger(),
		NewResolver(time.UTC, config.DefaultOverrides()),
		directory,
		f.sender,
		f.recorder,
		f.reporter,
		nil,
		LookupOptions{
			District:  config.DefaultDistrict,
			AllowList: config.DefaultAllowList(),
			GroupID:   "group-1",
			SendDelay: delay,
		},
	)
	return f
}

func TestLookupSkipsCandidateOutsideDistrictAndAllowList(t *testing.T) {
	f := newLookupFixture(&testDirectory{keys: []string{"frc1690", "frc2212"}}, 0)

	var run domain.TickRun
	require.NotPanics(t, func() {
		run = f.service.RunAt(context.Background(), at(19, 37), false)
	})

	assert.Equal(t, domain.TickInvalid, run.Outcome)
	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.directory.teamCalls, "team detail must not be fetched for invalid candidates")
}

func TestLookupSendsAllowListedTeamOutsideDistrict(t *testing.T) {
	f := newLookupFixture(&testDirectory{
		keys:  []string{"frc1690"},
		teams: map[string]domain.Team{"118": {Number: 118, Nickname: "Robonauts"}},
	}, 0)

	run := f.service.RunAt(context.Background(), at(1, 18), false)

	assert.Equal(t, domain.TickAnnounced, run.Outcome)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "group-1", f.sender.sent[0].targetID)
	assert.Equal(t, "FRC Team: Robonauts. \n Team Number: 118", f.sender.sent[0].text)
}

func TestLookupSendsDistrictTeam(t *testing.T) {
	f := newLookupFixture(&testDirectory{
		keys:  []string{"frc1937"},
		teams: map[string]domain.Team{"1937": {Number: 1937, Nickname: "Elysium"}},
	}, 0)

	run := f.service.RunAt(context.Background(), at(19, 37), false)

	assert.Equal(t, domain.TickAnnounced, run.Outcome)
	assert.Equal(t, []string{"FRC Team: Elysium. \n Team Number: 1937"}, f.sender.texts())
}

func TestLookupUsesOverrideCandidate(t *testing.T) {
	f := newLookupFixture(&testDirectory{
		keys:  []string{"frc5990"},
		teams: map[string]domain.Team{"5990": {Number: 5990, Nickname: "TRIGON"}},
	}, 0)

	run := f.service.RunAt(context.Background(), at(0, 14), false)

	assert.Equal(t, "5990", run.Candidate)
	assert.Equal(t, []string{"5990"}, f.directory.teamCalls)
	assert.Equal(t, domain.TickAnnounced, run.Outcome)
}

func TestLookupTreatsMissingTeamNumberAsNotFound(t *testing.T) {
	f := newLookupFixture(&testDirectory{keys: []string{"frc1937"}}, 0)

	run := f.service.RunAt(context.Background(), at(19, 37), false)

	assert.Equal(t, domain.TickNotFound, run.Outcome)
	assert.Empty(t, f.sender.sent)
}

func TestLookupTreatsTBA404AsNotFound(t *testing.T) {
	f := newLookupFixture(&testDirectory{
		keys:    []string{"frc1937"},
		teamErr: &tba.StatusError{Endpoint: "team", StatusCode: http.StatusNotFound},
	}, 0)

	run := f.service.RunAt(context.Background(), at(19, 37), false)

	assert.Equal(t, domain.TickNotFound, run.Outcome)
	assert.Empty(t, f.reporter.errs)
}

func TestLookupSwallowsNetworkErrors(t *testing.T) {
	f := newLookupFixture(&testDirectory{keysErr: errors.New("connection reset")}, 0)

	var run domain.TickRun
	require.NotPanics(t, func() {
		run = f.service.RunAt(context.Background(), at(19, 37), false)
	})

	assert.Equal(t, domain.TickFailed, run.Outcome)
	assert.Contains(t, run.Error, "connection reset")
	assert.Empty(t, f.sender.sent)
	assert.Len(t, f.reporter.errs, 1)
	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, domain.TickFailed, f.recorder.runs[0].Outcome)
}

func TestLookupSendFailureIsRecorded(t *testing.T) {
	f := newLookupFixture(&testDirectory{
		keys:  []string{"frc1937"},
		teams: map[string]domain.Team{"1937": {Number: 1937, Nickname: "Elysium"}},
	}, 0)
	f.sender.failOn = map[string]bool{"FRC Team: Elysium. \n Team Number: 1937": true}

	run := f.service.RunAt(context.Background(), at(19, 37), false)

	assert.Equal(t, domain.TickFailed, run.Outcome)
	assert.Len(t, f.reporter.errs, 1)
}

func TestLookupDryRunDoesNotSend(t *testing.T) {
	f := newLookupFixture(&testDirectory{
		keys:  []string{"frc1937"},
		teams: map[string]domain.Team{"1937": {Number: 1937, Nickname: "Elysium"}},
	}, time.Hour)

	run := f.service.RunAt(context.Background(), at(19, 37), true)

	assert.Equal(t, domain.TickDryRun, run.Outcome)
	assert.Equal(t, "FRC Team: Elysium. \n Team Number: 1937", run.Message)
	assert.Empty(t, f.sender.sent)
}

func TestLookupWaitsForSendDelay(t *testing.T) {
	f := newLookupFixture(&testDirectory{
		keys:  []string{"frc1937"},
		teams: map[string]domain.Team{"1937": {Number: 1937, Nickname: "Elysium"}},
	}, 30*time.Millisecond)

	start := time.Now()
	run := f.service.RunAt(context.Background(), at(19, 37), false)

	assert.Equal(t, domain.TickAnnounced, run.Outcome)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Len(t, f.sender.sent, 1)
}

func TestLookupDelayedSendAbortsOnCancel(t *testing.T) {
	f := newLookupFixture(&testDirectory{
		keys:  []string{"frc1937"},
		teams: map[string]domain.Team{"1937": {Number: 1937, Nickname: "Elysium"}},
	}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := f.service.RunAt(ctx, at(19, 37), false)

	assert.Equal(t, domain.TickFailed, run.Outcome)
	assert.Empty(t, f.sender.sent)
}

func TestLookupTickUsesClock(t *testing.T) {
	f := newLookupFixture(&testDirectory{keys: []string{}}, 0)
	f.service.now = func() time.Time { return at(21, 17) }

	f.service.Tick(context.Background())

	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, "7112", f.recorder.runs[0].Candidate)
	assert.NotEmpty(t, f.recorder.runs[0].ID)
}
