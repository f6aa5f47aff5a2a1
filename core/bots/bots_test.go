package bots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmarket/core/bidding"
	"github.com/kilianp07/gridmarket/core/factory"
	"github.com/kilianp07/gridmarket/core/lifecycle"
	"github.com/kilianp07/gridmarket/core/model"
)

func reqs() []bidding.Requirement {
	full := [model.PeriodsPerRound]float64{100, 100, 100, 100}
	return []bidding.Requirement{
		{TeamID: "red", AssetID: "red-coal", Type: model.AssetCoal, SRMC: 35, AvailableMW: full},
		{TeamID: "red", AssetID: "red-hydro", Type: model.AssetHydro, SRMC: 8, AvailableMW: [4]float64{50, 50, 50, 50}},
		{TeamID: "red", AssetID: "red-battery", Type: model.AssetBattery, AvailableMW: [4]float64{20, 20, 20, 20}},
		{TeamID: "red", AssetID: "red-solar", Type: model.AssetSolar, AvailableMW: [4]float64{0, 80, 120, 10}},
		{TeamID: "red", AssetID: "red-wind", Type: model.AssetWind, Locked: true, AvailableMW: full},
	}
}

func find(sub model.BidSubmission, asset string, period int) (model.AssetBid, bool) {
	for _, b := range sub.Bids {
		if b.AssetID == asset && b.Period == period {
			return b, true
		}
	}
	return model.AssetBid{}, false
}

func TestSRMCStrategy(t *testing.T) {
	forecast := []float64{300, 500, 700, 600}
	sub := SRMC{}.Bids(reqs(), forecast)

	coal, ok := find(sub, "red-coal", 1)
	require.True(t, ok)
	assert.Equal(t, []model.BidBand{{PriceMWh: 35, OfferedMW: 100}}, coal.Bands)

	// hydro goes to the afternoon peak only
	_, ok = find(sub, "red-hydro", 2)
	assert.True(t, ok)
	_, ok = find(sub, "red-hydro", 3)
	assert.False(t, ok)

	charge, _ := find(sub, "red-battery", 0)
	assert.Equal(t, model.BatteryCharge, charge.Battery.Mode)
	dis, _ := find(sub, "red-battery", 3)
	assert.Equal(t, model.BatteryDischarge, dis.Battery.Mode)
	idle, _ := find(sub, "red-battery", 1)
	assert.Equal(t, model.BatteryIdle, idle.Battery.Mode)

	solar, _ := find(sub, "red-solar", 2)
	assert.Equal(t, 0.0, solar.Bands[0].PriceMWh)
	assert.Equal(t, 120.0, solar.Bands[0].OfferedMW)

	_, ok = find(sub, "red-wind", 0)
	assert.False(t, ok, "locked assets are skipped")
}

func TestMarkupAndWithholder(t *testing.T) {
	sub := Markup{Factor: 2}.Bids(reqs(), nil)
	coal, _ := find(sub, "red-coal", 0)
	assert.Equal(t, 70.0, coal.Bands[0].PriceMWh)

	sub = Withholder{Share: 0.25}.Bids(reqs(), nil)
	coal, _ = find(sub, "red-coal", 0)
	assert.Equal(t, 25.0, coal.Bands[0].OfferedMW)
	hydro, ok := find(sub, "red-hydro", model.PeriodsPerRound-1)
	require.True(t, ok)
	assert.Equal(t, 50.0, hydro.Bands[0].OfferedMW)
}

func TestExtremes(t *testing.T) {
	peak, trough := extremes([]float64{10, 5, 40, 1})
	assert.Equal(t, 2, peak)
	assert.Equal(t, 1, trough)
	peak, trough = extremes(nil)
	assert.Equal(t, model.PeriodsPerRound-1, peak)
	assert.Equal(t, 0, trough)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"markup", "srmc", "withholder"}, Names())
	s, err := New(factory.ModuleConfig{Type: "markup", Conf: map[string]any{"factor": 3.0}})
	require.NoError(t, err)
	assert.Equal(t, Markup{Factor: 3}, s)
	s, err = New(factory.ModuleConfig{Type: "withholder"})
	require.NoError(t, err)
	assert.Equal(t, Withholder{Share: 0.5}, s)
	_, err = New(factory.ModuleConfig{Type: "withholder", Conf: map[string]any{"share": 2.0}})
	assert.Error(t, err)
	_, err = New(factory.ModuleConfig{Type: "random"})
	assert.ErrorContains(t, err, "unknown module type")
}

func TestPlayFullGame(t *testing.T) {
	m := lifecycle.NewManager(nil, nil, nil, nil, nil)
	g, err := m.CreateGame(model.GameConfig{
		Mode: "beginner",
		Seed: 7,
		Teams: []model.TeamConfig{
			{ID: "honest", Name: "Honest"},
			{ID: "greedy", Name: "Greedy"},
			{ID: "shy", Name: "Shy"},
		},
	})
	require.NoError(t, err)

	var rounds int
	lb, err := Play(m, g.ID, map[string]Strategy{
		"greedy": Markup{Factor: 3},
		"shy":    Withholder{Share: 0.5},
	}, func(model.RoundResult) { rounds++ })
	require.NoError(t, err)
	assert.Equal(t, g.TotalRounds, rounds)
	require.Len(t, lb, 3)
	for i, e := range lb {
		assert.Equal(t, i+1, e.Rank)
	}

	final, err := m.Game(g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseFinal, final.Phase)
}

func TestPlayWithBriefingHook(t *testing.T) {
	m := lifecycle.NewManager(nil, nil, nil, nil, nil)
	g, err := m.CreateGame(model.GameConfig{Mode: "beginner", Seed: 3, Teams: []model.TeamConfig{{ID: "a"}, {ID: "b"}}})
	require.NoError(t, err)

	var briefed []int
	var settled []model.RoundResult
	_, err = PlayWith(m, g.ID, nil, Hooks{
		Briefing: func(round int) error {
			briefed = append(briefed, round)
			if round == 1 {
				_, err := m.SetDemand(g.ID, []float64{0, 0, 0, 0})
				return err
			}
			return nil
		},
		Settled: func(r model.RoundResult) { settled = append(settled, r) },
	})
	require.NoError(t, err)
	require.Len(t, briefed, g.TotalRounds)
	assert.Equal(t, 0, briefed[0])
	for _, p := range settled[1].Periods {
		assert.Zero(t, p.DemandMW)
	}
}
