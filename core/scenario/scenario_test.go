package scenario

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmarket/core/catalog"
	"github.com/kilianp07/gridmarket/core/model"
)

func TestComposeMultipliesInOrder(t *testing.T) {
	e, err := Compose([]string{"cold_snap", "gas_price_spike", "heatwave"})
	require.NoError(t, err)
	assert.InDelta(t, 1.2*1.15, e.DemandMultiplier, 1e-9)
	assert.InDelta(t, 1.2*1.8, e.SRMCMultiplier[model.AssetGasCCGT], 1e-9)
	assert.InDelta(t, 0.95, e.ThermalDerate, 1e-9)
	assert.False(t, e.ForcedOutage)
}

func TestComposeUnknownEvent(t *testing.T) {
	_, err := Compose([]string{"meteor"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestCatalogEventsAreKnown(t *testing.T) {
	for _, mode := range catalog.Modes() {
		rounds, err := catalog.Rounds(mode)
		require.NoError(t, err)
		for _, r := range rounds {
			assert.NoError(t, Validate(r.Events), "%s round %d", mode, r.Index)
		}
	}
}

func TestAvailability(t *testing.T) {
	assets, err := catalog.BuildPortfolio("t1", nil)
	require.NoError(t, err)
	e, err := Compose([]string{"windy_week", "drought"})
	require.NoError(t, err)
	byType := map[model.AssetType]model.Asset{}
	for _, a := range assets {
		byType[a.Type] = a
	}
	// Winter night wind cf 0.5 × 1.5 is clamped to 1.
	assert.InDelta(t, 300, e.AvailableMW(byType[model.AssetWind], model.SeasonWinter, 0), 1e-9)
	assert.InDelta(t, 125, e.AvailableMW(byType[model.AssetHydro], model.SeasonWinter, 0), 1e-9)
	assert.InDelta(t, 0, e.AvailableMW(byType[model.AssetSolar], model.SeasonWinter, 0), 1e-9)
	assert.InDelta(t, 800, e.AvailableMW(byType[model.AssetCoal], model.SeasonWinter, 0), 1e-9)
	assert.InDelta(t, 35, e.SRMC(byType[model.AssetCoal]), 1e-9)
}

func TestAvailabilityTableLockedAndOutage(t *testing.T) {
	assets, err := catalog.BuildPortfolio("t1", nil)
	require.NoError(t, err)
	teams := []model.Team{{ID: "t1", Assets: assets}}
	round := model.RoundConfig{Season: model.SeasonSummer, Unlocked: []model.AssetType{model.AssetCoal, model.AssetGasCCGT}}
	table := Neutral().AvailabilityTable(teams, round, &model.ForcedOutage{TeamID: "t1", AssetID: "t1-gas_ccgt"})
	assert.Equal(t, [4]float64{800, 800, 800, 800}, table["t1-coal"])
	assert.Equal(t, [4]float64{}, table["t1-gas_ccgt"])
	assert.Equal(t, [4]float64{}, table["t1-wind"])
}

func TestDrawOutageDeterministic(t *testing.T) {
	a1, _ := catalog.BuildPortfolio("a", nil)
	b1, _ := catalog.BuildPortfolio("b", nil)
	teams := []model.Team{{ID: "a", Assets: a1}, {ID: "b", Assets: b1}}
	round, err := catalog.Lookup(catalog.ModeBeginner, 3)
	require.NoError(t, err)

	o1 := DrawOutage(rand.New(rand.NewPCG(5, 6)), teams, round)
	o2 := DrawOutage(rand.New(rand.NewPCG(5, 6)), teams, round)
	require.NotNil(t, o1)
	assert.Equal(t, o1, o2)

	noThermal := model.RoundConfig{Unlocked: []model.AssetType{model.AssetWind}}
	assert.Nil(t, DrawOutage(rand.New(rand.NewPCG(1, 1)), teams, noThermal))
}
