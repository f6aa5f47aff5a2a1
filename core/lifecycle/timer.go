package lifecycle

import (
	"time"

	"github.com/kilianp07/gridmarket/core/events"
	"github.com/kilianp07/gridmarket/core/model"
)

// DefaultTick is the resolution of the bidding countdown.
const DefaultTick = time.Second

// newTicker is replaced in tests to drive the countdown by hand.
var newTicker = func(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// startTimer runs the countdown of the current bidding window. The caller
// holds r.mu.
func (m *Manager) startTimer(r *Room) {
	m.cancelTimer(r)
	ch, stop := newTicker(m.tick)
	done := make(chan struct{})
	gen := r.gen
	r.stopTimer = func() {
		stop()
		close(done)
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ch:
				if !m.onTick(r, gen) {
					return
				}
			}
		}
	}()
}

// cancelTimer stops the running countdown, if any, and invalidates pending
// ticks. The caller holds r.mu.
func (m *Manager) cancelTimer(r *Room) {
	r.gen++
	if r.stopTimer != nil {
		r.stopTimer()
		r.stopTimer = nil
	}
}

// onTick decrements the countdown and ends bidding when it reaches zero.
// It reports whether the countdown should keep running.
func (m *Manager) onTick(r *Room, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen || r.game.Phase != model.PhaseBidding {
		return false
	}
	if r.game.BiddingTimeRemaining > 0 {
		r.game.BiddingTimeRemaining--
	}
	m.bus.Publish(events.TimerTick{
		Game:             r.game.ID,
		Round:            r.game.CurrentRound,
		RemainingSeconds: r.game.BiddingTimeRemaining,
	})
	if r.game.BiddingTimeRemaining > 0 {
		m.publishSnapshot(r)
		return true
	}
	m.log.With(map[string]any{"game_id": r.game.ID}).Infof("bidding timer expired in round %d", r.game.CurrentRound)
	if err := m.endBidding(r); err != nil {
		m.log.Errorf("end bidding on timer for game %s: %v", r.game.ID, err)
	}
	return false
}
