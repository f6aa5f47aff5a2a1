package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/gridmarket/core/events"
	"github.com/kilianp07/gridmarket/core/logger"
	coremetrics "github.com/kilianp07/gridmarket/core/metrics"
	"github.com/kilianp07/gridmarket/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards lifecycle
// events to sink. Events the sink has no recorder for are dropped. It stops
// when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.Event], sink coremetrics.MetricsSink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	if log == nil {
		log = logger.Nop{}
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := Collect(sink, ev, time.Now()); err != nil {
					log.Warnf("record %s for game %s: %v", ev.Kind(), ev.GameID(), err)
				}
			}
		}
	}()
}

// Collect applies one lifecycle event to sink. now stamps events that carry
// no time of their own.
//
//gocyclo:ignore
func Collect(sink coremetrics.MetricsSink, ev events.Event, now time.Time) error {
	switch e := ev.(type) {
	case events.RoundSettled:
		at := e.Result.SettledAt
		if at.IsZero() {
			at = now
		}
		if err := sink.RecordRoundResult(coremetrics.RoundResultEvent{GameID: e.Game, Mode: e.Mode, Result: e.Result, Time: at}); err != nil {
			return err
		}
		if r, ok := sink.(coremetrics.PeriodClearingRecorder); ok {
			for _, p := range e.Result.Periods {
				if err := r.RecordPeriodClearing(coremetrics.PeriodClearingEvent{
					GameID: e.Game,
					Round:  e.Result.Round,
					Season: e.Result.Season,
					Result: p,
					Time:   at,
				}); err != nil {
					return err
				}
			}
		}
	case events.WithholdingFlagged:
		if r, ok := sink.(coremetrics.WithholdingRecorder); ok {
			return r.RecordWithholding(coremetrics.WithholdingEvent{GameID: e.Game, Round: e.Round, Flag: e.Flag, Time: now})
		}
	case events.BidAccepted:
		if r, ok := sink.(coremetrics.BidRecorder); ok {
			return r.RecordBid(coremetrics.BidEvent{GameID: e.Game, TeamID: e.TeamID, Accepted: true, Slots: e.Slots, Time: now})
		}
	case events.BidRejected:
		if r, ok := sink.(coremetrics.BidRecorder); ok {
			reason := ""
			if e.Err != nil {
				reason = e.Err.Error()
			}
			return r.RecordBid(coremetrics.BidEvent{GameID: e.Game, TeamID: e.TeamID, Reason: reason, Time: now})
		}
	case events.PhaseChanged:
		if r, ok := sink.(coremetrics.PhaseRecorder); ok {
			at := e.At
			if at.IsZero() {
				at = now
			}
			return r.RecordPhase(coremetrics.PhaseEvent{GameID: e.Game, Round: e.Round, From: e.From, To: e.To, Time: at})
		}
	case events.GameFinished:
		if r, ok := sink.(coremetrics.LeaderboardRecorder); ok {
			return r.RecordLeaderboard(coremetrics.LeaderboardEvent{GameID: e.Game, Leaderboard: e.Leaderboard, Time: now})
		}
	case events.GameDeleted:
		if f, ok := sink.(coremetrics.GameForgetter); ok {
			return f.ForgetGame(e.Game)
		}
	}
	return nil
}
