package logging

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmarket/core/model"
)

func record(gameID string, round int, ts time.Time) LogRecord {
	return LogRecord{
		Timestamp: ts,
		GameID:    gameID,
		Mode:      "beginner",
		Round:     round,
		Season:    model.SeasonWinter,
		Result: model.RoundResult{
			Round:  round,
			Season: model.SeasonWinter,
			Teams:  []model.TeamRoundResult{{TeamID: "red", Round: round, ProfitDollars: 1000}},
		},
	}
}

func TestLogRecord_JSON(t *testing.T) {
	data, err := json.Marshal(record("g1", 2, time.Unix(0, 0)))
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, k := range []string{"timestamp", "game_id", "mode", "round", "season", "result"} {
		assert.Contains(t, m, k)
	}
}

func TestLogQueryMatch(t *testing.T) {
	now := time.Now()
	rec := record("g1", 1, now)
	one, two := 1, 2
	assert.True(t, LogQuery{}.Match(rec))
	assert.True(t, LogQuery{GameID: "g1", Round: &one, TeamID: "red"}.Match(rec))
	assert.False(t, LogQuery{Round: &two}.Match(rec))
	assert.False(t, LogQuery{TeamID: "blue"}.Match(rec))
	assert.False(t, LogQuery{Start: now.Add(time.Minute)}.Match(rec))
	assert.False(t, LogQuery{End: now.Add(-time.Minute)}.Match(rec))
}

func TestJSONLStoreQuery(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "rounds.jsonl"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.Append(ctx, record("g1", 0, now)))
	require.NoError(t, store.Append(ctx, record("g1", 1, now.Add(time.Second))))
	require.NoError(t, store.Append(ctx, record("g2", 0, now.Add(2*time.Second))))

	out, err := store.Query(ctx, LogQuery{GameID: "g1"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[1].Round)
	assert.Equal(t, 1000.0, out[1].Result.Teams[0].ProfitDollars)
}

func TestNopStore(t *testing.T) {
	var s LogStore = NopStore{}
	assert.NoError(t, s.Append(context.Background(), LogRecord{}))
	out, err := s.Query(context.Background(), LogQuery{})
	assert.NoError(t, err)
	assert.Empty(t, out)
}
