// Package events defines the game events emitted on the event bus.
//
// Available event types:
//   - PhaseChanged: a game moved to a new lifecycle phase
//   - Snapshot: full game state after a mutating operation
//   - TimerTick: bidding countdown update
//   - BidAccepted / BidRejected: outcome of a team submission
//   - RoundSettled: all periods of a round cleared and settled
//   - WithholdingFlagged: a team held back capacity during scarcity
//   - GameFinished: final leaderboard
package events
