package logging

import (
	"context"
	"time"

	"github.com/kilianp07/gridmarket/core/model"
)

// LogRecord captures one settled round of a game.
type LogRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	GameID    string            `json:"game_id"`
	Mode      string            `json:"mode"`
	Round     int               `json:"round"`
	Season    model.Season      `json:"season"`
	Result    model.RoundResult `json:"result"`
}

// LogQuery defines filters for retrieving records.
type LogQuery struct {
	Start  time.Time
	End    time.Time
	GameID string
	Round  *int
	TeamID string
}

// Match reports whether r passes every filter of q.
func (q LogQuery) Match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.GameID != "" && r.GameID != q.GameID {
		return false
	}
	if q.Round != nil && r.Round != *q.Round {
		return false
	}
	if q.TeamID != "" {
		if _, ok := r.Result.Team(q.TeamID); !ok {
			return false
		}
	}
	return true
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, LogRecord) error              { return nil }
func (NopStore) Query(context.Context, LogQuery) ([]LogRecord, error) { return nil, nil }
func (NopStore) Close() error                                         { return nil }
