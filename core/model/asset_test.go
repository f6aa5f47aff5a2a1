package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetValidate(t *testing.T) {
	cases := []struct {
		name  string
		asset Asset
		field string
	}{
		{"unknown type", Asset{Type: "nuclear"}, "type"},
		{"battery payload missing", Asset{Type: AssetBattery, CapacityMW: 100}, "battery"},
		{"battery efficiency", Asset{Type: AssetBattery, CapacityMW: 100, Battery: &BatteryState{DurationHours: 4, ChargeEfficiency: 1.2}}, "battery.charge_efficiency"},
		{"battery soc above capacity", Asset{Type: AssetBattery, CapacityMW: 100, Battery: &BatteryState{DurationHours: 4, ChargeEfficiency: 0.9, SOCMWh: 401}}, "battery.soc_mwh"},
		{"hydro over initial", Asset{Type: AssetHydro, Hydro: &HydroState{InitialWaterMWh: 10, WaterRemainingMWh: 11}}, "hydro.water_remaining_mwh"},
		{"thermal payload missing", Asset{Type: AssetCoal}, "thermal"},
		{"renewable payload missing", Asset{Type: AssetWind}, "renewable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.asset.Validate()
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestAssetHelpers(t *testing.T) {
	bat := Asset{Type: AssetBattery, CapacityMW: 100, Battery: &BatteryState{DurationHours: 4, ChargeEfficiency: 0.92}}
	assert.Equal(t, 400.0, bat.EnergyCapacityMWh())
	assert.NoError(t, bat.Validate())

	hydro := Asset{Type: AssetHydro, CapacityMW: 250, Hydro: &HydroState{InitialWaterMWh: 3000, WaterRemainingMWh: 600}}
	assert.Equal(t, 100.0, hydro.MaxHydroMW())

	wind := Asset{Type: AssetWind, Renewable: &RenewableProfile{CapacityFactors: map[Season][PeriodsPerRound]float64{
		SeasonWinter: {0.5, 0.4, 0.3, 0.6},
	}}}
	assert.Equal(t, 0.3, wind.CapacityFactor(SeasonWinter, 2))
	assert.Equal(t, 0.0, wind.CapacityFactor(SeasonSummer, 2))
	assert.Equal(t, 1.0, hydro.CapacityFactor(SeasonSummer, 0))
}

func TestAssetCloneDoesNotAlias(t *testing.T) {
	a := Asset{Type: AssetBattery, Battery: &BatteryState{SOCMWh: 10}}
	c := a.Clone()
	c.Battery.SOCMWh = 50
	assert.Equal(t, 10.0, a.Battery.SOCMWh)
}

func TestRankTeamsTiesByName(t *testing.T) {
	teams := []Team{
		{ID: "t1", Name: "Zeta", CumulativeProfitDollars: 100},
		{ID: "t2", Name: "Alpha", CumulativeProfitDollars: 100},
		{ID: "t3", Name: "Mid", CumulativeProfitDollars: 500},
	}
	lb := RankTeams(teams)
	require.Len(t, lb, 3)
	assert.Equal(t, []string{"t3", "t2", "t1"}, []string{lb[0].TeamID, lb[1].TeamID, lb[2].TeamID})
	assert.Equal(t, 3, teams[0].Rank)
	assert.Equal(t, 1, teams[2].Rank)
}

func TestErrorKinds(t *testing.T) {
	var err error = &PhaseError{Action: "submit_bids", Phase: PhaseResults}
	assert.ErrorIs(t, err, ErrPhase)
	assert.Contains(t, err.Error(), "results")

	err = &NotFoundError{Kind: "team", ID: "x"}
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
}
