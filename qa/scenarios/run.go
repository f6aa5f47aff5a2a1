package scenarios

import (
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/gridmarket/core/balancing"
	"github.com/kilianp07/gridmarket/core/bots"
	"github.com/kilianp07/gridmarket/core/events"
	"github.com/kilianp07/gridmarket/core/lifecycle"
	"github.com/kilianp07/gridmarket/core/model"
	"github.com/kilianp07/gridmarket/infra/metrics"
	"github.com/kilianp07/gridmarket/internal/eventbus"
)

// Report is the outcome of a played scenario.
type Report struct {
	GameID       string
	Leaderboard  model.Leaderboard
	Rounds       []model.RoundResult
	AcceptedBids int
	RejectedBids int
	Withholding  int
	// Registry holds the game metrics recorded while playing.
	Registry *prometheus.Registry
}

// Run plays sc to the end with bots on a private manager.
//
//gocyclo:ignore
func Run(sc *Scenario) (*Report, error) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		return nil, fmt.Errorf("prom sink: %w", err)
	}
	policy, err := balancing.New(sc.Balancing)
	if err != nil {
		return nil, err
	}
	strategies := make(map[string]bots.Strategy, len(sc.Teams))
	for _, t := range sc.Teams {
		if t.Strategy.Type == "" {
			continue
		}
		s, err := bots.New(t.Strategy)
		if err != nil {
			return nil, fmt.Errorf("team %s: %w", t.ID, err)
		}
		strategies[t.ID] = s
	}

	bus := eventbus.NewBuffered[events.Event](1 << 14)
	defer bus.Close()
	sub := bus.Subscribe()
	m := lifecycle.NewManager(nil, nil, policy, bus, nil)
	g, err := m.CreateGame(sc.GameConfig())
	if err != nil {
		return nil, err
	}

	rep := &Report{GameID: g.ID, Registry: reg}
	lb, err := bots.PlayWith(m, g.ID, strategies, bots.Hooks{
		Briefing: func(round int) error {
			mw, ok := sc.Demand[round]
			if !ok {
				return nil
			}
			_, err := m.SetDemand(g.ID, mw)
			return err
		},
		Settled: func(r model.RoundResult) { rep.Rounds = append(rep.Rounds, r) },
	})
	if err != nil {
		return nil, err
	}
	rep.Leaderboard = lb

	// every event is already buffered once PlayWith returns
	for done := false; !done; {
		select {
		case ev := <-sub:
			switch ev.(type) {
			case events.BidAccepted:
				rep.AcceptedBids++
			case events.BidRejected:
				rep.RejectedBids++
			case events.WithholdingFlagged:
				rep.Withholding++
			}
			if err := metrics.Collect(sink, ev, time.Now()); err != nil {
				return nil, err
			}
		default:
			done = true
		}
	}
	return rep, nil
}

// Check compares a report with the expectations of sc and returns one
// message per failed check.
func Check(sc *Scenario, rep *Report) []string {
	var fails []string
	exp := sc.Expected
	if exp.Rounds > 0 && len(rep.Rounds) != exp.Rounds {
		fails = append(fails, fmt.Sprintf("expected %d rounds, got %d", exp.Rounds, len(rep.Rounds)))
	}
	if exp.Winner != "" && (len(rep.Leaderboard) == 0 || rep.Leaderboard[0].TeamID != exp.Winner) {
		fails = append(fails, fmt.Sprintf("expected %s to win, leaderboard is %v", exp.Winner, teamOrder(rep.Leaderboard)))
	}
	if exp.MaxClearingPrice != nil {
		for _, r := range rep.Rounds {
			for _, p := range r.Periods {
				if p.ClearingPriceMWh > *exp.MaxClearingPrice {
					fails = append(fails, fmt.Sprintf("round %d period %d cleared at %.2f above %.2f", r.Round, p.Period, p.ClearingPriceMWh, *exp.MaxClearingPrice))
				}
			}
		}
	}
	for _, idx := range exp.ZeroProfitRounds {
		if idx < 0 || idx >= len(rep.Rounds) {
			fails = append(fails, fmt.Sprintf("round %d was not played", idx))
			continue
		}
		for _, t := range rep.Rounds[idx].Teams {
			if math.Abs(t.NetProfitDollars) > 1e-9 {
				fails = append(fails, fmt.Sprintf("team %s made %.2f in round %d", t.TeamID, t.NetProfitDollars, idx))
			}
		}
	}
	if rep.Withholding < exp.MinWithholdingFlags {
		fails = append(fails, fmt.Sprintf("expected at least %d withholding flags, got %d", exp.MinWithholdingFlags, rep.Withholding))
	}
	if exp.AcceptedBids > 0 && rep.AcceptedBids != exp.AcceptedBids {
		fails = append(fails, fmt.Sprintf("expected %d accepted bids, got %d", exp.AcceptedBids, rep.AcceptedBids))
	}
	return fails
}

func teamOrder(lb model.Leaderboard) []string {
	out := make([]string, len(lb))
	for i, e := range lb {
		out[i] = e.TeamID
	}
	return out
}

