package mqtt

import (
	"context"
	"encoding/json"

	"github.com/kilianp07/gridmarket/core/events"
	"github.com/kilianp07/gridmarket/core/logger"
	"github.com/kilianp07/gridmarket/core/model"
	coremqtt "github.com/kilianp07/gridmarket/core/mqtt"
	"github.com/kilianp07/gridmarket/internal/eventbus"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// LeaderboardMessage is the payload of the leaderboard topic.
type LeaderboardMessage struct {
	GameID      string            `json:"game_id"`
	Final       bool              `json:"final"`
	Leaderboard model.Leaderboard `json:"leaderboard"`
}

// Publisher mirrors lifecycle events onto the broker. Snapshots, round
// results and leaderboards are retained so late subscribers catch up.
type Publisher struct {
	client Client
	topics coremqtt.Topics
	log    logger.Logger
}

func NewPublisher(client Client, topics coremqtt.Topics, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop{}
	}
	return &Publisher{client: client, topics: topics, log: log}
}

// Handle publishes the messages derived from one event.
func (p *Publisher) Handle(ev events.Event) error {
	switch e := ev.(type) {
	case events.Snapshot:
		if err := p.publish(p.topics.Snapshot(e.Game.ID), e.Game); err != nil {
			return err
		}
		if e.Game.Phase == model.PhaseResults || e.Game.Phase == model.PhaseLobby {
			return p.publish(p.topics.Leaderboard(e.Game.ID), LeaderboardMessage{
				GameID:      e.Game.ID,
				Leaderboard: model.RankTeams(e.Game.Clone().Teams),
			})
		}
	case events.RoundSettled:
		return p.publish(p.topics.Round(e.Game, e.Result.Round), e.Result)
	case events.GameFinished:
		return p.publish(p.topics.Leaderboard(e.Game), LeaderboardMessage{GameID: e.Game, Final: true, Leaderboard: e.Leaderboard})
	case events.GameDeleted:
		// An empty retained payload clears the broker copy.
		if err := p.client.Publish(p.topics.Snapshot(e.Game), nil, true); err != nil {
			return err
		}
		return p.client.Publish(p.topics.Leaderboard(e.Game), nil, true)
	}
	return nil
}

func (p *Publisher) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.client.Publish(topic, payload, true)
}

// Start forwards bus events to the broker until ctx is canceled or the bus
// is closed.
func (p *Publisher) Start(ctx context.Context, bus eventbus.EventBus[events.Event]) {
	if bus == nil {
		return
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
				if err := p.Handle(ev); err != nil {
					p.log.Errorf("publish %s for game %s: %v", ev.Kind(), ev.GameID(), err)
				}
			}
		}
	}()
}
