// Package session maps transport connections to the game identity they
// act under. The transport resolves a connection before any command reaches
// the lifecycle manager.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kilianp07/gridmarket/core/model"
)

// Identity is who a connection speaks for. Exactly one of TeamID and Host
// is set.
type Identity struct {
	GameID string `json:"game_id"`
	TeamID string `json:"team_id,omitempty"`
	Host   bool   `json:"host,omitempty"`
}

func (id Identity) validate() error {
	if id.GameID == "" {
		return &model.ValidationError{Field: "game_id", Reason: "empty"}
	}
	if id.Host == (id.TeamID != "") {
		return &model.ValidationError{Field: "identity", Reason: "exactly one of team_id and host must be set"}
	}
	return nil
}

// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Identity
}

func NewRegistry() *Registry {
	return &Registry{conns: map[string]Identity{}}
}

// Bind attaches an identity to a connection, replacing any previous one.
func (r *Registry) Bind(connID string, id Identity) error {
	if connID == "" {
		return &model.ValidationError{Field: "connection_id", Reason: "empty"}
	}
	if err := id.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.conns[connID] = id
	r.mu.Unlock()
	return nil
}

// Resolve returns the identity of a connection.
func (r *Registry) Resolve(connID string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.conns[connID]
	if !ok {
		return Identity{}, &model.NotFoundError{Kind: "connection", ID: connID}
	}
	return id, nil
}

func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	delete(r.conns, connID)
	r.mu.Unlock()
}

// UnbindGame drops every connection of a game and returns how many there were.
func (r *Registry) UnbindGame(gameID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for c, id := range r.conns {
		if id.GameID == gameID {
			delete(r.conns, c)
			n++
		}
	}
	return n
}

// Len returns the number of bound connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// ErrForbidden matches every ForbiddenError.
var ErrForbidden = errors.New("forbidden")

// ForbiddenError is returned by Authorize when an identity may not issue a
// command.
type ForbiddenError struct {
	Command string
	Reason  string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s refused: %s", e.Command, e.Reason)
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// Authorize checks that id may issue a command of the given type against
// gameID. hostOnly marks commands reserved to the host; the remaining
// commands are reserved to teams.
func Authorize(id Identity, gameID, command string, hostOnly bool) error {
	if id.GameID != gameID {
		return &ForbiddenError{Command: command, Reason: fmt.Sprintf("connection is bound to game %s", id.GameID)}
	}
	if hostOnly && !id.Host {
		return &ForbiddenError{Command: command, Reason: "host only"}
	}
	if !hostOnly && id.Host {
		return &ForbiddenError{Command: command, Reason: "teams only"}
	}
	return nil
}
