package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dispatchlog "github.com/kilianp07/gridmarket/core/dispatch/logging"
	"github.com/kilianp07/gridmarket/core/model"
)

func records() []dispatchlog.LogRecord {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []dispatchlog.LogRecord{{
		Timestamp: at,
		GameID:    "g1",
		Round:     2,
		Season:    model.SeasonWinter,
		Result: model.RoundResult{Round: 2, Teams: []model.TeamRoundResult{
			{TeamID: "red", RevenueDollars: 1000, CostDollars: 400, ProfitDollars: 600, NetProfitDollars: 550, BalancingPenaltyDollars: 50},
			{TeamID: "blue", NetProfitDollars: -10.5, Withholding: []model.WithholdingFlag{{TeamID: "blue"}}},
		}},
	}}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records()))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, teamHeader, rows[0])
	assert.Equal(t, []string{"g1", "2", "winter", "2026-03-01T09:00:00Z", "red", "1000.00", "400.00", "0.00", "600.00", "50.00", "550.00", "0", "0"}, rows[1])
	assert.Equal(t, "-10.50", rows[2][10])
	assert.Equal(t, "1", rows[2][12])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, records()))
	var out []dispatchlog.LogRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "g1", out[0].GameID)
}
