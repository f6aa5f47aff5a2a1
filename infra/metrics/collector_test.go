package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmarket/core/events"
	coremetrics "github.com/kilianp07/gridmarket/core/metrics"
	"github.com/kilianp07/gridmarket/core/model"
	"github.com/kilianp07/gridmarket/internal/eventbus"
)

type captureSink struct {
	mu      sync.Mutex
	rounds  []coremetrics.RoundResultEvent
	periods []coremetrics.PeriodClearingEvent
	flags   []coremetrics.WithholdingEvent
	bids    []coremetrics.BidEvent
	phases  []coremetrics.PhaseEvent
	boards  []coremetrics.LeaderboardEvent
}

func (c *captureSink) RecordRoundResult(ev coremetrics.RoundResultEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rounds = append(c.rounds, ev)
	return nil
}

func (c *captureSink) RecordPeriodClearing(ev coremetrics.PeriodClearingEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.periods = append(c.periods, ev)
	return nil
}

func (c *captureSink) RecordWithholding(ev coremetrics.WithholdingEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flags = append(c.flags, ev)
	return nil
}

func (c *captureSink) RecordBid(ev coremetrics.BidEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bids = append(c.bids, ev)
	return nil
}

func (c *captureSink) RecordPhase(ev coremetrics.PhaseEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phases = append(c.phases, ev)
	return nil
}

func (c *captureSink) RecordLeaderboard(ev coremetrics.LeaderboardEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards = append(c.boards, ev)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rounds) + len(c.periods) + len(c.flags) + len(c.bids) + len(c.phases) + len(c.boards)
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.NewTyped[events.Event]()
	defer bus.Close()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink, nil)

	settled := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	res := model.RoundResult{
		Round:     2,
		Season:    model.SeasonWinter,
		Periods:   make([]model.DispatchResult, model.PeriodsPerRound),
		SettledAt: settled,
	}
	bus.Publish(events.RoundSettled{Game: "g1", Mode: "beginner", Result: res})
	bus.Publish(events.WithholdingFlagged{Game: "g1", Round: 2, Flag: model.WithholdingFlag{TeamID: "red"}})
	bus.Publish(events.BidAccepted{Game: "g1", TeamID: "red", Slots: 8})
	bus.Publish(events.BidRejected{Game: "g1", TeamID: "blue", Err: errors.New("bad band")})
	bus.Publish(events.PhaseChanged{Game: "g1", Round: 2, From: model.PhaseBidding, To: model.PhaseDispatching})
	bus.Publish(events.TimerTick{Game: "g1", RemainingSeconds: 3})
	bus.Publish(events.GameFinished{Game: "g1", Leaderboard: model.Leaderboard{{Rank: 1, TeamID: "red"}}})

	want := 1 + model.PeriodsPerRound + 1 + 2 + 1 + 1
	require.Eventually(t, func() bool { return sink.count() == want }, time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, settled, sink.rounds[0].Time)
	assert.Equal(t, "beginner", sink.rounds[0].Mode)
	for _, p := range sink.periods {
		assert.Equal(t, 2, p.Round)
		assert.Equal(t, model.SeasonWinter, p.Season)
	}
	assert.True(t, sink.bids[0].Accepted)
	assert.Equal(t, 8, sink.bids[0].Slots)
	assert.False(t, sink.bids[1].Accepted)
	assert.Equal(t, "bad band", sink.bids[1].Reason)
	assert.Equal(t, model.PhaseDispatching, sink.phases[0].To)
	assert.Equal(t, "g1", sink.boards[0].GameID)
}

func TestCollectRoundOnlySink(t *testing.T) {
	var got []coremetrics.RoundResultEvent
	sink := roundOnly(func(ev coremetrics.RoundResultEvent) { got = append(got, ev) })
	now := time.Now()

	require.NoError(t, Collect(sink, events.RoundSettled{Game: "g", Result: model.RoundResult{Periods: make([]model.DispatchResult, 4)}}, now))
	require.NoError(t, Collect(sink, events.BidAccepted{Game: "g"}, now))
	require.Len(t, got, 1)
	assert.Equal(t, now, got[0].Time, "zero settlement time falls back to now")
}

type roundOnly func(coremetrics.RoundResultEvent)

func (f roundOnly) RecordRoundResult(ev coremetrics.RoundResultEvent) error {
	f(ev)
	return nil
}
