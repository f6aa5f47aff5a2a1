package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPrefix is the topic root used when none is configured.
const DefaultPrefix = "gridmarket"

// Topic kinds, also used as keys of the QoS map.
const (
	KindSnapshot    = "snapshot"
	KindRound       = "round"
	KindLeaderboard = "leaderboard"
	KindCommand     = "command"
	KindReply       = "reply"
)

// Topics builds the per-game topic tree <prefix>/<gameId>/<kind>[/...].
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

func (t Topics) Snapshot(gameID string) string {
	return fmt.Sprintf("%s/%s/%s", t.prefix(), gameID, KindSnapshot)
}

func (t Topics) Round(gameID string, round int) string {
	return fmt.Sprintf("%s/%s/%s/%d", t.prefix(), gameID, KindRound, round)
}

func (t Topics) Leaderboard(gameID string) string {
	return fmt.Sprintf("%s/%s/%s", t.prefix(), gameID, KindLeaderboard)
}

func (t Topics) Command(gameID string) string {
	return fmt.Sprintf("%s/%s/%s", t.prefix(), gameID, KindCommand)
}

// Commands is the wildcard subscription covering every game.
func (t Topics) Commands() string {
	return t.Command("+")
}

func (t Topics) Reply(gameID, connID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.prefix(), gameID, KindReply, connID)
}

// Parse splits a topic of the tree into game id and kind.
func (t Topics) Parse(topic string) (gameID, kind string, err error) {
	rest, ok := strings.CutPrefix(topic, t.prefix()+"/")
	if !ok {
		return "", "", fmt.Errorf("%w: topic %q outside %s", ErrMalformedMessage, topic, t.prefix())
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" {
		return "", "", fmt.Errorf("%w: topic %q", ErrMalformedMessage, topic)
	}
	kind = parts[1]
	switch kind {
	case KindSnapshot, KindLeaderboard, KindCommand:
		if len(parts) != 2 {
			return "", "", fmt.Errorf("%w: topic %q", ErrMalformedMessage, topic)
		}
	case KindRound:
		if len(parts) != 3 {
			return "", "", fmt.Errorf("%w: topic %q", ErrMalformedMessage, topic)
		}
		if _, err := strconv.Atoi(parts[2]); err != nil {
			return "", "", fmt.Errorf("%w: round in topic %q", ErrMalformedMessage, topic)
		}
	case KindReply:
		if len(parts) != 3 || parts[2] == "" {
			return "", "", fmt.Errorf("%w: topic %q", ErrMalformedMessage, topic)
		}
	default:
		return "", "", fmt.Errorf("%w: unknown kind %q", ErrMalformedMessage, kind)
	}
	return parts[0], kind, nil
}
