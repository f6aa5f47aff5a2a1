package events

import (
	"time"

	"github.com/kilianp07/gridmarket/core/model"
)

// Event is anything published by the lifecycle manager.
type Event interface {
	GameID() string
	Kind() string
}

type PhaseChanged struct {
	Game  string
	Round int
	From  model.Phase
	To    model.Phase
	At    time.Time
}

func (e PhaseChanged) GameID() string { return e.Game }
func (PhaseChanged) Kind() string     { return "phase_changed" }

// Snapshot carries a deep copy of the game; receivers may keep it.
type Snapshot struct {
	Game model.Game
}

func (e Snapshot) GameID() string { return e.Game.ID }
func (Snapshot) Kind() string     { return "snapshot" }

type TimerTick struct {
	Game             string
	Round            int
	RemainingSeconds int
}

func (e TimerTick) GameID() string { return e.Game }
func (TimerTick) Kind() string     { return "timer_tick" }

type BidAccepted struct {
	Game     string
	TeamID   string
	Slots    int
	Complete bool
}

func (e BidAccepted) GameID() string { return e.Game }
func (BidAccepted) Kind() string     { return "bid_accepted" }

type BidRejected struct {
	Game   string
	TeamID string
	Err    error
}

func (e BidRejected) GameID() string { return e.Game }
func (BidRejected) Kind() string     { return "bid_rejected" }

// RoundSettled is published once per round, after balancing.
type RoundSettled struct {
	Game   string
	Mode   string
	Result model.RoundResult
}

func (e RoundSettled) GameID() string { return e.Game }
func (RoundSettled) Kind() string     { return "round_settled" }

type WithholdingFlagged struct {
	Game  string
	Round int
	Flag  model.WithholdingFlag
}

func (e WithholdingFlagged) GameID() string { return e.Game }
func (WithholdingFlagged) Kind() string     { return "withholding_flagged" }

type GameFinished struct {
	Game        string
	Leaderboard model.Leaderboard
}

func (e GameFinished) GameID() string { return e.Game }
func (GameFinished) Kind() string     { return "game_finished" }

// GameDeleted is published when a game is removed from the process.
type GameDeleted struct {
	Game string
}

func (e GameDeleted) GameID() string { return e.Game }
func (GameDeleted) Kind() string     { return "game_deleted" }
