package demand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmarket/core/model"
)

func TestForecastWithoutVariation(t *testing.T) {
	m := New(1)
	got := m.Forecast(1000, model.SeasonWinter, 1.2, 0)
	require.Len(t, got, model.PeriodsPerRound)
	assert.InDeltaSlice(t, []float64{600, 780, 720, 900}, got, 1e-9)
}

func TestForecastVariationBounded(t *testing.T) {
	m := New(42)
	for i := 0; i < 50; i++ {
		got := m.Forecast(1000, model.SeasonSummer, 1, 0.05)
		for p, v := range got {
			base := 1000 * TargetFraction(model.SeasonSummer, p)
			assert.GreaterOrEqual(t, v, base*0.95-1e-9)
			assert.LessOrEqual(t, v, base*1.05+1e-9)
		}
	}
}

func TestForecastDeterministicPerSeed(t *testing.T) {
	a := New(7).Forecast(2000, model.SeasonAutumn, 1, 0.1)
	b := New(7).Forecast(2000, model.SeasonAutumn, 1, 0.1)
	c := New(8).Forecast(2000, model.SeasonAutumn, 1, 0.1)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestFleetCapacityOnlyUnlocked(t *testing.T) {
	teams := []model.Team{
		{Assets: []model.Asset{{Type: model.AssetCoal, CapacityMW: 800}, {Type: model.AssetWind, CapacityMW: 300}}},
		{Assets: []model.Asset{{Type: model.AssetCoal, CapacityMW: 800}}},
	}
	round := model.RoundConfig{Unlocked: []model.AssetType{model.AssetCoal}}
	assert.Equal(t, 1600.0, FleetCapacityMW(teams, round))
	assert.Equal(t, 0.0, TargetFraction("monsoon", 0))
}
