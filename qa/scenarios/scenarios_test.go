package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmarket/core/model"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		sc, err := Load(f)
		require.NoError(t, err, f)
		t.Run(sc.Name, func(t *testing.T) {
			rep, err := Run(sc)
			require.NoError(t, err)
			assert.Empty(t, Check(sc, rep))
			assert.Len(t, rep.Leaderboard, len(sc.Teams))
		})
	}
}

func TestRunRecordsMetrics(t *testing.T) {
	sc := &Scenario{
		Name:  "metrics",
		Mode:  "beginner",
		Seed:  4,
		Teams: []TeamDef{{ID: "red"}, {ID: "blue"}},
	}
	rep, err := Run(sc)
	require.NoError(t, err)
	n, err := testutil.GatherAndCount(rep.Registry, "game_bid_submissions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one accepted series per team")
	assert.Equal(t, 8, rep.AcceptedBids)
}

func TestCheckReportsFailures(t *testing.T) {
	limit := 10.0
	sc := &Scenario{Expected: Expected{
		Rounds:              2,
		Winner:              "blue",
		MaxClearingPrice:    &limit,
		ZeroProfitRounds:    []int{0, 5},
		MinWithholdingFlags: 1,
		AcceptedBids:        3,
	}}
	rep := &Report{
		Leaderboard: model.Leaderboard{{Rank: 1, TeamID: "red"}, {Rank: 2, TeamID: "blue"}},
		Rounds: []model.RoundResult{{
			Periods: []model.DispatchResult{{ClearingPriceMWh: 12}},
			Teams:   []model.TeamRoundResult{{TeamID: "red", NetProfitDollars: 5}},
		}},
	}
	fails := Check(sc, rep)
	assert.Len(t, fails, 7)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("no-file.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(":"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	unnamed := filepath.Join(dir, "unnamed.yaml")
	require.NoError(t, os.WriteFile(unnamed, []byte("mode: beginner\n"), 0o600))
	_, err = Load(unnamed)
	assert.Error(t, err)
}

func TestLoadStrategies(t *testing.T) {
	sc, err := Load("beginner_baseline.yaml")
	require.NoError(t, err)
	require.Len(t, sc.Teams, 4)
	assert.Equal(t, "markup", sc.Teams[2].Strategy.Type)
	assert.EqualValues(t, 1.5, sc.Teams[2].Strategy.Conf["factor"])
	cfg := sc.GameConfig()
	assert.Equal(t, uint64(5), cfg.Seed)
	assert.Len(t, cfg.Teams, 4)
}
