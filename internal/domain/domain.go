package domain

import "time"

type Team struct {
	Number   int
	Nickname string
}

type IncomingMessage struct {
	SenderID string
	ChatID   string
	Body     string
}

type TickOutcome string

const (
	TickAnnounced TickOutcome = "announced"
	TickInvalid   TickOutcome = "invalid"
	TickNotFound  TickOutcome = "not_found"
	TickFailed    TickOutcome = "failed"
	TickDryRun    TickOutcome = "dry_run"
)

type TickRun struct {
	ID         string
	At         time.Time
	Candidate  string
	Outcome    TickOutcome
	TeamNumber int
	Nickname   string
	Message    string
	Error      string
}

type OverlapPolicy string

const (
	OverlapAllow OverlapPolicy = "allow"
	OverlapSkip  OverlapPolicy = "skip"
)
