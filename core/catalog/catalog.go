package catalog

import (
	"fmt"
	"sort"

	"github.com/kilianp07/gridmarket/core/model"
)

const (
	ModeBeginner = "beginner"
	ModeStandard = "standard"
)

type roundDef struct {
	name        string
	description string
	season      model.Season
	events      []string
	unlocks     []model.AssetType
	seconds     int
	variation   float64
}

var modes = map[string][]roundDef{
	ModeBeginner: {
		{
			name:        "First Light",
			description: "Thermal plant only. Learn how the merit order sets the price.",
			season:      model.SeasonSummer,
			unlocks:     []model.AssetType{model.AssetCoal, model.AssetGasCCGT, model.AssetGasPeaker},
			seconds:     180,
		},
		{
			name:        "Renewables Arrive",
			description: "Wind and solar join the stack at zero marginal cost.",
			season:      model.SeasonAutumn,
			unlocks:     []model.AssetType{model.AssetWind, model.AssetSolar},
			seconds:     180,
			variation:   0.03,
		},
		{
			name:        "Storage and Water",
			description: "Hydro and batteries let you move energy between periods.",
			season:      model.SeasonWinter,
			events:      []string{"cold_snap"},
			unlocks:     []model.AssetType{model.AssetHydro, model.AssetBattery},
			seconds:     240,
			variation:   0.05,
		},
		{
			name:        "The Crunch",
			description: "A heatwave and an unplanned outage squeeze the margin.",
			season:      model.SeasonSummer,
			events:      []string{"heatwave", "plant_outage"},
			seconds:     240,
			variation:   0.05,
		},
	},
	ModeStandard: {
		{
			name:        "Baseload Basics",
			description: "Coal and combined cycle gas serve a mild spring.",
			season:      model.SeasonSpring,
			unlocks:     []model.AssetType{model.AssetCoal, model.AssetGasCCGT},
			seconds:     180,
		},
		{
			name:        "Peaking Power",
			description: "Fast peakers are expensive but can capture the evening peak.",
			season:      model.SeasonSummer,
			unlocks:     []model.AssetType{model.AssetGasPeaker},
			seconds:     180,
			variation:   0.03,
		},
		{
			name:        "Wind Rising",
			description: "A windy week pushes cheap energy into the stack.",
			season:      model.SeasonAutumn,
			events:      []string{"windy_week"},
			unlocks:     []model.AssetType{model.AssetWind},
			seconds:     180,
			variation:   0.05,
		},
		{
			name:        "Solar Noon",
			description: "Sunshine collapses afternoon prices.",
			season:      model.SeasonSummer,
			events:      []string{"sunny_spell"},
			unlocks:     []model.AssetType{model.AssetSolar},
			seconds:     180,
			variation:   0.05,
		},
		{
			name:        "Hydro Reserves",
			description: "Pick the single period your reservoir should run.",
			season:      model.SeasonWinter,
			events:      []string{"cold_snap"},
			unlocks:     []model.AssetType{model.AssetHydro},
			seconds:     240,
			variation:   0.05,
		},
		{
			name:        "Gas Shock",
			description: "Gas prices spike and the merit order reshuffles.",
			season:      model.SeasonAutumn,
			events:      []string{"gas_price_spike"},
			seconds:     240,
			variation:   0.05,
		},
		{
			name:        "Storage Era",
			description: "Batteries arrive while coal gets cheaper.",
			season:      model.SeasonSpring,
			events:      []string{"coal_price_drop"},
			unlocks:     []model.AssetType{model.AssetBattery},
			seconds:     240,
			variation:   0.05,
		},
		{
			name:        "Dunkelflaute",
			description: "Dark, still and dry. Every megawatt counts.",
			season:      model.SeasonWinter,
			events:      []string{"dunkelflaute", "drought", "plant_outage"},
			seconds:     300,
			variation:   0.08,
		},
	},
}

// Modes lists the known game modes in name order.
func Modes() []string {
	out := make([]string, 0, len(modes))
	for m := range modes {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// RoundCount returns the number of rounds of a mode.
func RoundCount(mode string) (int, error) {
	defs, ok := modes[mode]
	if !ok {
		return 0, &model.NotFoundError{Kind: "mode", ID: mode}
	}
	return len(defs), nil
}

// Lookup returns the configuration of round index (zero based) in mode.
// Unlocks are cumulative across the rounds of a mode.
func Lookup(mode string, index int) (model.RoundConfig, error) {
	defs, ok := modes[mode]
	if !ok {
		return model.RoundConfig{}, &model.NotFoundError{Kind: "mode", ID: mode}
	}
	if index < 0 || index >= len(defs) {
		return model.RoundConfig{}, &model.NotFoundError{Kind: "round", ID: fmt.Sprintf("%s/%d", mode, index)}
	}
	var unlocked []model.AssetType
	for i := 0; i <= index; i++ {
		unlocked = append(unlocked, defs[i].unlocks...)
	}
	d := defs[index]
	return model.RoundConfig{
		Index:              index,
		Name:               d.name,
		Description:        d.description,
		Season:             d.season,
		Events:             append([]string(nil), d.events...),
		Unlocked:           unlocked,
		BiddingSeconds:     d.seconds,
		DemandVariationPct: d.variation,
	}, nil
}

// Rounds returns every round of a mode in order.
func Rounds(mode string) ([]model.RoundConfig, error) {
	n, err := RoundCount(mode)
	if err != nil {
		return nil, err
	}
	out := make([]model.RoundConfig, 0, n)
	for i := 0; i < n; i++ {
		r, err := Lookup(mode, i)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
