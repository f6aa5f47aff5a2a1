package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kilianp07/gridmarket/core/events"
	"github.com/kilianp07/gridmarket/core/lifecycle"
	"github.com/kilianp07/gridmarket/core/logger"
	"github.com/kilianp07/gridmarket/core/model"
	coremqtt "github.com/kilianp07/gridmarket/core/mqtt"
	"github.com/kilianp07/gridmarket/core/session"
	"github.com/kilianp07/gridmarket/internal/eventbus"
)

// Session message types handled by the listener itself.
const (
	MsgJoin  = "join"
	MsgLeave = "leave"
)

// Executor applies resolved commands. *lifecycle.Manager implements it.
type Executor interface {
	Execute(cmd lifecycle.Command) (lifecycle.Outcome, error)
	Game(gameID string) (model.Game, error)
}

// CommandMessage is the payload published on <prefix>/<gameId>/command.
type CommandMessage struct {
	ConnectionID string               `json:"connection_id"`
	Type         string               `json:"type"`
	TeamID       string               `json:"team_id,omitempty"`
	Host         bool                 `json:"host,omitempty"`
	HostKey      string               `json:"host_key,omitempty"`
	Config       *model.GameConfig    `json:"config,omitempty"`
	Bids         *model.BidSubmission `json:"bids,omitempty"`
	Seconds      int                  `json:"seconds,omitempty"`
	DemandMW     []float64            `json:"demand_mw,omitempty"`
}

// Refusal explains why a command was not applied.
type Refusal struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Reply is published on <prefix>/<gameId>/reply/<connectionId>.
type Reply struct {
	Type    string                `json:"type"`
	OK      bool                  `json:"ok"`
	GameID  string                `json:"game_id,omitempty"`
	Game    *model.Game           `json:"game,omitempty"`
	Receipt *lifecycle.BidReceipt `json:"receipt,omitempty"`
	Error   *Refusal              `json:"error,omitempty"`
}

// CommandListener turns broker messages into lifecycle commands. Every
// connection must join a game as a team or as the host before it may issue
// commands against it; create_game binds the caller as host of the new game.
type CommandListener struct {
	client   Client
	exec     Executor
	sessions *session.Registry
	topics   coremqtt.Topics
	hostKey  string
	log      logger.Logger
}

// NewCommandListener builds a listener. A non-empty hostKey must be
// presented to create games and to join as host.
func NewCommandListener(client Client, exec Executor, sessions *session.Registry, topics coremqtt.Topics, hostKey string, log logger.Logger) *CommandListener {
	if log == nil {
		log = logger.Nop{}
	}
	if sessions == nil {
		sessions = session.NewRegistry()
	}
	return &CommandListener{client: client, exec: exec, sessions: sessions, topics: topics, hostKey: hostKey, log: log}
}

// Start subscribes to the command topics of every game.
func (l *CommandListener) Start() error {
	if err := l.client.Subscribe(l.topics.Commands(), l.onMessage); err != nil {
		return fmt.Errorf("subscribe %s: %w", l.topics.Commands(), err)
	}
	return nil
}

// Watch drops the sessions of deleted games until ctx is canceled or the
// bus is closed.
func (l *CommandListener) Watch(ctx context.Context, bus eventbus.EventBus[events.Event]) {
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
				if e, isDel := ev.(events.GameDeleted); isDel {
					if n := l.sessions.UnbindGame(e.Game); n > 0 {
						l.log.Infof("dropped %d sessions of game %s", n, e.Game)
					}
				}
			}
		}
	}()
}

func (l *CommandListener) onMessage(topic string, payload []byte) {
	gameID, _, err := l.topics.Parse(topic)
	if err != nil {
		l.log.Warnf("drop message: %v", err)
		return
	}
	var msg CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.ConnectionID == "" {
		l.log.Warnf("drop undecodable command on %s", topic)
		return
	}
	reply := l.Handle(gameID, msg)
	data, err := json.Marshal(reply)
	if err != nil {
		l.log.Errorf("encode reply: %v", err)
		return
	}
	if err := l.client.Publish(l.topics.Reply(gameID, msg.ConnectionID), data, false); err != nil {
		l.log.Errorf("reply to %s: %v", msg.ConnectionID, err)
	}
}

// Handle applies one message addressed to gameID and builds the reply.
func (l *CommandListener) Handle(gameID string, msg CommandMessage) Reply {
	reply, err := l.handle(gameID, msg)
	if err != nil {
		l.log.Debugw("command refused", map[string]any{
			"game_id":       gameID,
			"connection_id": msg.ConnectionID,
			"type":          msg.Type,
			"error":         err.Error(),
		})
		return Reply{Type: msg.Type, GameID: gameID, Error: refusal(err)}
	}
	reply.Type = msg.Type
	reply.OK = true
	return reply
}

//gocyclo:ignore
func (l *CommandListener) handle(gameID string, msg CommandMessage) (Reply, error) {
	switch msg.Type {
	case MsgJoin:
		if msg.Host && l.hostKey != "" && msg.HostKey != l.hostKey {
			return Reply{}, &session.ForbiddenError{Command: msg.Type, Reason: "invalid host key"}
		}
		g, err := l.exec.Game(gameID)
		if err != nil {
			return Reply{}, err
		}
		if !msg.Host {
			if _, ok := g.Team(msg.TeamID); !ok {
				return Reply{}, &model.NotFoundError{Kind: "team", ID: msg.TeamID}
			}
		}
		if err := l.sessions.Bind(msg.ConnectionID, session.Identity{GameID: gameID, TeamID: msg.TeamID, Host: msg.Host}); err != nil {
			return Reply{}, err
		}
		return Reply{GameID: gameID, Game: &g}, nil
	case MsgLeave:
		l.sessions.Unbind(msg.ConnectionID)
		return Reply{GameID: gameID}, nil
	case lifecycle.CmdCreateGame:
		if l.hostKey != "" && msg.HostKey != l.hostKey {
			return Reply{}, &session.ForbiddenError{Command: msg.Type, Reason: "invalid host key"}
		}
		out, err := l.exec.Execute(lifecycle.Command{Type: msg.Type, Config: msg.Config})
		if err != nil {
			return Reply{}, err
		}
		if err := l.sessions.Bind(msg.ConnectionID, session.Identity{GameID: out.Game.ID, Host: true}); err != nil {
			return Reply{}, err
		}
		return Reply{GameID: out.Game.ID, Game: &out.Game}, nil
	}

	id, err := l.sessions.Resolve(msg.ConnectionID)
	if err != nil {
		return Reply{}, &session.ForbiddenError{Command: msg.Type, Reason: "connection has not joined a game"}
	}
	if err := session.Authorize(id, gameID, msg.Type, lifecycle.HostOnly(msg.Type)); err != nil {
		return Reply{}, err
	}
	out, err := l.exec.Execute(lifecycle.Command{
		Type:     msg.Type,
		GameID:   gameID,
		TeamID:   id.TeamID,
		Bids:     msg.Bids,
		Seconds:  msg.Seconds,
		DemandMW: msg.DemandMW,
	})
	if err != nil {
		return Reply{}, err
	}
	if msg.Type == lifecycle.CmdSubmitBids {
		// teams only learn about their own bids
		return Reply{GameID: gameID, Receipt: out.Receipt}, nil
	}
	return Reply{GameID: gameID, Game: &out.Game}, nil
}

func refusal(err error) *Refusal {
	code := "internal"
	switch {
	case errors.Is(err, model.ErrValidation):
		code = "validation"
	case errors.Is(err, model.ErrPhase):
		code = "phase"
	case errors.Is(err, model.ErrNotFound):
		code = "not_found"
	case errors.Is(err, session.ErrForbidden):
		code = "forbidden"
	}
	return &Refusal{Code: code, Message: err.Error()}
}
