package logging

import (
	"context"

	"github.com/kilianp07/gridmarket/core/events"
	"github.com/kilianp07/gridmarket/core/logger"
	"github.com/kilianp07/gridmarket/internal/eventbus"
)

// RecordFromEvent converts a settled round into a log record.
func RecordFromEvent(e events.RoundSettled) LogRecord {
	return LogRecord{
		Timestamp: e.Result.SettledAt,
		GameID:    e.Game,
		Mode:      e.Mode,
		Round:     e.Result.Round,
		Season:    e.Result.Season,
		Result:    e.Result,
	}
}

// StartRecorder appends every settled round published on bus to store.
// It stops when the context is canceled or the bus is closed.
func StartRecorder(ctx context.Context, bus eventbus.EventBus[events.Event], store LogStore, log logger.Logger) {
	if bus == nil || store == nil {
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
				rs, ok := ev.(events.RoundSettled)
				if !ok {
					continue
				}
				if err := store.Append(ctx, RecordFromEvent(rs)); err != nil {
					log.Errorf("append round log for game %s round %d: %v", rs.Game, rs.Result.Round, err)
				}
			}
		}
	}()
}
