package bidding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmarket/core/model"
	"github.com/kilianp07/gridmarket/core/scenario"
)

func newTestBook() *Book {
	return NewBook([]Requirement{
		{TeamID: "t1", AssetID: "t1-coal", Type: model.AssetCoal, CapacityMW: 800, AvailableMW: [4]float64{800, 800, 800, 800}},
		{TeamID: "t1", AssetID: "t1-hydro", Type: model.AssetHydro, CapacityMW: 250, AvailableMW: [4]float64{250, 250, 250, 250}},
		{TeamID: "t1", AssetID: "t1-battery", Type: model.AssetBattery, CapacityMW: 100, EnergyCapacityMWh: 400, AvailableMW: [4]float64{100, 100, 100, 100}},
		{TeamID: "t1", AssetID: "t1-wind", Type: model.AssetWind, Locked: true},
		{TeamID: "t2", AssetID: "t2-coal", Type: model.AssetCoal, CapacityMW: 800, AvailableMW: [4]float64{800, 800, 800, 800}},
	})
}

func coalBid(period int, bands ...model.BidBand) model.AssetBid {
	return model.AssetBid{AssetID: "t1-coal", Period: period, Bands: bands}
}

func TestUpsertLastWriteWins(t *testing.T) {
	b := newTestBook()
	require.NoError(t, b.Upsert("t1", coalBid(0, model.BidBand{PriceMWh: 40, OfferedMW: 500})))
	require.NoError(t, b.Upsert("t1", coalBid(0, model.BidBand{PriceMWh: 60, OfferedMW: 300}, model.BidBand{PriceMWh: 90, OfferedMW: 200})))
	e, ok := b.Get("t1", "t1-coal", 0)
	require.True(t, ok)
	assert.Len(t, e.Bands, 2)
	assert.Equal(t, 500.0, e.OfferedMW())

	// Same submission twice is idempotent.
	require.NoError(t, b.Upsert("t1", coalBid(0, model.BidBand{PriceMWh: 60, OfferedMW: 300}, model.BidBand{PriceMWh: 90, OfferedMW: 200})))
	assert.Equal(t, 1, b.Len())
}

func TestValidationLeavesSlotUnchanged(t *testing.T) {
	b := newTestBook()
	require.NoError(t, b.Upsert("t1", coalBid(1, model.BidBand{PriceMWh: 40, OfferedMW: 500})))

	cases := []struct {
		name string
		bid  model.AssetBid
	}{
		{"price above cap", coalBid(1, model.BidBand{PriceMWh: 20001, OfferedMW: 1})},
		{"price below floor", coalBid(1, model.BidBand{PriceMWh: -1001, OfferedMW: 1})},
		{"negative quantity", coalBid(1, model.BidBand{PriceMWh: 10, OfferedMW: -1})},
		{"band over available", coalBid(1, model.BidBand{PriceMWh: 10, OfferedMW: 801})},
		{"sum over available", coalBid(1, model.BidBand{PriceMWh: 10, OfferedMW: 500}, model.BidBand{PriceMWh: 20, OfferedMW: 400})},
		{"bad period", coalBid(4, model.BidBand{PriceMWh: 10, OfferedMW: 1})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := b.Upsert("t1", tc.bid)
			assert.ErrorIs(t, err, model.ErrValidation)
			e, _ := b.Get("t1", "t1-coal", 1)
			assert.Equal(t, 500.0, e.OfferedMW())
		})
	}
}

func TestSubmitIsAtomic(t *testing.T) {
	b := newTestBook()
	err := b.Submit("t1", model.BidSubmission{Bids: []model.AssetBid{
		coalBid(0, model.BidBand{PriceMWh: 40, OfferedMW: 800}),
		coalBid(1, model.BidBand{PriceMWh: 40, OfferedMW: 900}),
	}})
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, 0, b.Len())
}

func TestOwnershipAndLocks(t *testing.T) {
	b := newTestBook()
	err := b.Upsert("t2", coalBid(0, model.BidBand{PriceMWh: 1, OfferedMW: 1}))
	assert.ErrorIs(t, err, model.ErrNotFound)
	err = b.Upsert("t1", model.AssetBid{AssetID: "t1-wind", Period: 0, Bands: []model.BidBand{{PriceMWh: 0, OfferedMW: 0}}})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestHydroSinglePeriod(t *testing.T) {
	b := newTestBook()
	require.NoError(t, b.Upsert("t1", model.AssetBid{AssetID: "t1-hydro", Period: 1, Bands: []model.BidBand{{PriceMWh: 30, OfferedMW: 250}}}))
	require.NoError(t, b.Upsert("t1", model.AssetBid{AssetID: "t1-hydro", Period: 3, Bands: []model.BidBand{{PriceMWh: 30, OfferedMW: 250}}}))
	_, ok := b.Get("t1", "t1-hydro", 1)
	assert.False(t, ok)
	p, ok := b.HydroPeriod("t1", "t1-hydro")
	require.True(t, ok)
	assert.Equal(t, 3, p)
}

func TestHydroBidAboveReservoirIsAccepted(t *testing.T) {
	teams := []model.Team{{ID: "t1", Assets: []model.Asset{
		{ID: "t1-hydro", TeamID: "t1", Type: model.AssetHydro, CapacityMW: 250, SRMC: 8, Hydro: &model.HydroState{InitialWaterMWh: 3000, WaterRemainingMWh: 100}},
	}}}
	round := model.RoundConfig{Season: model.SeasonWinter, Unlocked: model.AllAssetTypes}
	avail := scenario.Neutral().AvailabilityTable(teams, round, nil)
	b := NewBook(BuildRequirements(teams, round, avail, nil))

	req, ok := b.Requirement("t1-hydro")
	require.True(t, ok)
	assert.InDelta(t, 100.0/6, req.AvailableMW[1], 1e-9)

	// the reservoir cap is applied when the round settles
	require.NoError(t, b.Upsert("t1", model.AssetBid{AssetID: "t1-hydro", Period: 1, Bands: []model.BidBand{{PriceMWh: 8, OfferedMW: 50}}}))
	e, ok := b.Get("t1", "t1-hydro", 1)
	require.True(t, ok)
	assert.Equal(t, 50.0, e.OfferedMW())

	err := b.Upsert("t1", model.AssetBid{AssetID: "t1-hydro", Period: 1, Bands: []model.BidBand{{PriceMWh: 8, OfferedMW: 251}}})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestBatteryBidValidation(t *testing.T) {
	b := newTestBook()
	target := 300.0
	require.NoError(t, b.Upsert("t1", model.AssetBid{AssetID: "t1-battery", Period: 0, Battery: &model.BatteryBid{Mode: model.BatteryCharge, TargetSOCMWh: &target}}))
	target = 999
	e, _ := b.Get("t1", "t1-battery", 0)
	assert.Equal(t, 300.0, *e.Battery.TargetSOCMWh)

	err := b.Upsert("t1", model.AssetBid{AssetID: "t1-battery", Period: 1, Battery: &model.BatteryBid{Mode: "boost"}})
	assert.ErrorIs(t, err, model.ErrValidation)
	err = b.Upsert("t1", model.AssetBid{AssetID: "t1-battery", Period: 1, Battery: &model.BatteryBid{Mode: model.BatteryDischarge, MW: 150}})
	assert.ErrorIs(t, err, model.ErrValidation)
	err = b.Upsert("t1", model.AssetBid{AssetID: "t1-battery", Period: 1, Bands: []model.BidBand{{PriceMWh: 1, OfferedMW: 1}}})
	assert.ErrorIs(t, err, model.ErrValidation)
	over := 401.0
	err = b.Upsert("t1", model.AssetBid{AssetID: "t1-battery", Period: 1, Battery: &model.BatteryBid{Mode: model.BatteryCharge, TargetSOCMWh: &over}})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestIsComplete(t *testing.T) {
	b := newTestBook()
	assert.False(t, b.IsComplete("t1"))
	assert.Len(t, b.Missing("t1"), 4+1+4)

	var bids []model.AssetBid
	for p := 0; p < model.PeriodsPerRound; p++ {
		bids = append(bids,
			coalBid(p, model.BidBand{PriceMWh: 35, OfferedMW: 800}),
			model.AssetBid{AssetID: "t1-battery", Period: p, Battery: &model.BatteryBid{Mode: model.BatteryIdle}},
		)
	}
	require.NoError(t, b.Submit("t1", model.BidSubmission{Bids: bids}))
	missing := b.Missing("t1")
	require.Len(t, missing, 1)
	assert.Equal(t, Key{TeamID: "t1", AssetID: "t1-hydro", Period: -1}, missing[0])

	require.NoError(t, b.Upsert("t1", model.AssetBid{AssetID: "t1-hydro", Period: 2}))
	assert.True(t, b.IsComplete("t1"))
}

func TestClosedBookRejects(t *testing.T) {
	b := newTestBook()
	b.Close()
	assert.True(t, b.Closed())
	err := b.Upsert("t1", coalBid(0, model.BidBand{PriceMWh: 1, OfferedMW: 1}))
	assert.ErrorIs(t, err, model.ErrPhase)
}

func TestBuildRequirements(t *testing.T) {
	teams := []model.Team{{ID: "t1", Assets: []model.Asset{
		{ID: "t1-coal", TeamID: "t1", Type: model.AssetCoal, CapacityMW: 800, SRMC: 35, Thermal: &model.ThermalState{}},
		{ID: "t1-battery", TeamID: "t1", Type: model.AssetBattery, CapacityMW: 100, Battery: &model.BatteryState{DurationHours: 4, ChargeEfficiency: 0.9, SOCMWh: 120}},
	}}}
	round := model.RoundConfig{Unlocked: []model.AssetType{model.AssetCoal}}
	avail := map[string][model.PeriodsPerRound]float64{"t1-coal": {800, 800, 700, 800}}
	reqs := BuildRequirements(teams, round, avail, func(a model.Asset) float64 { return a.SRMC * 2 })
	require.Len(t, reqs, 2)
	assert.Equal(t, 70.0, reqs[0].SRMC)
	assert.Equal(t, 700.0, reqs[0].AvailableMW[2])
	assert.False(t, reqs[0].Locked)
	assert.True(t, reqs[1].Locked)
	assert.Equal(t, 400.0, reqs[1].EnergyCapacityMWh)
	assert.Equal(t, 120.0, reqs[1].SOCMWh)
	assert.False(t, reqs[1].Required())
}
