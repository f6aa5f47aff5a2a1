package bots

import (
	"fmt"

	"github.com/kilianp07/gridmarket/core/lifecycle"
	"github.com/kilianp07/gridmarket/core/model"
)

// Hooks are optional callbacks around each round of a played game.
type Hooks struct {
	// Briefing runs while the round is in its briefing, before bidding opens.
	Briefing func(round int) error
	// Settled receives each settled round.
	Settled func(model.RoundResult)
}

// Play runs a game from the lobby to the final leaderboard. Every team bids
// with its strategy; teams without one bid at marginal cost. after is
// called with each settled round and may be nil.
func Play(m *lifecycle.Manager, gameID string, strategies map[string]Strategy, after func(model.RoundResult)) (model.Leaderboard, error) {
	return PlayWith(m, gameID, strategies, Hooks{Settled: after})
}

// PlayWith is Play with a briefing hook.
//
//gocyclo:ignore
func PlayWith(m *lifecycle.Manager, gameID string, strategies map[string]Strategy, hooks Hooks) (model.Leaderboard, error) {
	g, err := m.StartRound(gameID)
	if err != nil {
		return nil, err
	}
	for {
		if hooks.Briefing != nil {
			if err := hooks.Briefing(g.CurrentRound); err != nil {
				return nil, err
			}
		}
		if g, err = m.StartBidding(gameID); err != nil {
			return nil, err
		}
		for _, t := range g.Teams {
			s, ok := strategies[t.ID]
			if !ok {
				s = SRMC{}
			}
			reqs, err := m.Requirements(gameID, t.ID)
			if err != nil {
				return nil, err
			}
			forecast := g.DemandForecastMW
			if len(g.DemandOverrideMW) == model.PeriodsPerRound {
				forecast = g.DemandOverrideMW
			}
			sub := s.Bids(reqs, forecast)
			if len(sub.Bids) == 0 {
				continue
			}
			if _, err := m.SubmitBids(gameID, t.ID, sub); err != nil {
				return nil, fmt.Errorf("team %s (%s): %w", t.ID, s.Name(), err)
			}
		}
		if g, err = m.EndBidding(gameID); err != nil {
			return nil, err
		}
		if hooks.Settled != nil && len(g.RoundResults) > 0 {
			hooks.Settled(g.RoundResults[len(g.RoundResults)-1])
		}
		if g, err = m.NextRound(gameID); err != nil {
			return nil, err
		}
		if g.Phase == model.PhaseFinal {
			return m.Leaderboard(gameID)
		}
	}
}
