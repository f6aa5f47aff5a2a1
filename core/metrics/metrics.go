package metrics

import (
	"time"

	"github.com/kilianp07/gridmarket/core/model"
)

// RoundResultEvent is a settled round of a game.
type RoundResultEvent struct {
	GameID string
	Mode   string
	Result model.RoundResult
	Time   time.Time
}

// MetricsSink records settled rounds for observability purposes.
type MetricsSink interface {
	RecordRoundResult(ev RoundResultEvent) error
}

// PeriodClearingEvent is the market outcome of one period.
type PeriodClearingEvent struct {
	GameID string
	Round  int
	Season model.Season
	Result model.DispatchResult
	Time   time.Time
}

// PeriodClearingRecorder records per-period clearings.
type PeriodClearingRecorder interface {
	RecordPeriodClearing(ev PeriodClearingEvent) error
}

// WithholdingEvent is a public withholding flag.
type WithholdingEvent struct {
	GameID string
	Round  int
	Flag   model.WithholdingFlag
	Time   time.Time
}

// WithholdingRecorder records withholding flags.
type WithholdingRecorder interface {
	RecordWithholding(ev WithholdingEvent) error
}

// BidEvent is the outcome of a team submission.
type BidEvent struct {
	GameID   string
	TeamID   string
	Accepted bool
	Slots    int
	Reason   string
	Time     time.Time
}

// BidRecorder records submissions.
type BidRecorder interface {
	RecordBid(ev BidEvent) error
}

// PhaseEvent is a lifecycle transition.
type PhaseEvent struct {
	GameID string
	Round  int
	From   model.Phase
	To     model.Phase
	Time   time.Time
}

// PhaseRecorder records lifecycle transitions.
type PhaseRecorder interface {
	RecordPhase(ev PhaseEvent) error
}

// LeaderboardEvent is the final ranking of a game.
type LeaderboardEvent struct {
	GameID      string
	Leaderboard model.Leaderboard
	Time        time.Time
}

// LeaderboardRecorder records final rankings.
type LeaderboardRecorder interface {
	RecordLeaderboard(ev LeaderboardEvent) error
}

// GameForgetter drops every series kept for a deleted game.
type GameForgetter interface {
	ForgetGame(gameID string) error
}

// NopSink implements MetricsSink and every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRoundResult(RoundResultEvent) error       { return nil }
func (NopSink) RecordPeriodClearing(PeriodClearingEvent) error { return nil }
func (NopSink) RecordWithholding(WithholdingEvent) error       { return nil }
func (NopSink) RecordBid(BidEvent) error                       { return nil }
func (NopSink) RecordPhase(PhaseEvent) error                   { return nil }
func (NopSink) RecordLeaderboard(LeaderboardEvent) error       { return nil }
func (NopSink) ForgetGame(string) error                        { return nil }
