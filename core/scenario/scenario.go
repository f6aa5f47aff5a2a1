// Package scenario turns the named events of a round into multiplicative
// effects on demand, availability and marginal cost, and draws the random
// forced outage of a round.
package scenario

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/kilianp07/gridmarket/core/model"
)

// Effects is the composed result of a round's events. Multipliers default
// to 1 and never go below 0.
type Effects struct {
	DemandMultiplier float64                     `json:"demand_multiplier"`
	ThermalDerate    float64                     `json:"thermal_derate"`
	HydroDerate      float64                     `json:"hydro_derate"`
	CFMultiplier     map[model.AssetType]float64 `json:"cf_multiplier,omitempty"`
	SRMCMultiplier   map[model.AssetType]float64 `json:"srmc_multiplier,omitempty"`
	ForcedOutage     bool                        `json:"forced_outage"`
}

// Neutral returns effects that change nothing.
func Neutral() Effects {
	return Effects{
		DemandMultiplier: 1,
		ThermalDerate:    1,
		HydroDerate:      1,
		CFMultiplier:     map[model.AssetType]float64{},
		SRMCMultiplier:   map[model.AssetType]float64{},
	}
}

type effect func(*Effects)

func scaleType(m map[model.AssetType]float64, f float64, types ...model.AssetType) {
	for _, t := range types {
		cur, ok := m[t]
		if !ok {
			cur = 1
		}
		m[t] = cur * f
	}
}

var events = map[string]effect{
	"heatwave": func(e *Effects) {
		e.DemandMultiplier *= 1.15
		e.ThermalDerate *= 0.95
		scaleType(e.CFMultiplier, 1.1, model.AssetSolar)
	},
	"cold_snap": func(e *Effects) {
		e.DemandMultiplier *= 1.2
		scaleType(e.SRMCMultiplier, 1.2, model.AssetGasCCGT, model.AssetGasPeaker)
	},
	"gas_price_spike": func(e *Effects) {
		scaleType(e.SRMCMultiplier, 1.8, model.AssetGasCCGT, model.AssetGasPeaker)
	},
	"coal_price_drop": func(e *Effects) {
		scaleType(e.SRMCMultiplier, 0.7, model.AssetCoal)
	},
	"windy_week": func(e *Effects) { scaleType(e.CFMultiplier, 1.5, model.AssetWind) },
	"still_week": func(e *Effects) { scaleType(e.CFMultiplier, 0.4, model.AssetWind) },
	"sunny_spell": func(e *Effects) {
		scaleType(e.CFMultiplier, 1.3, model.AssetSolar)
	},
	"dunkelflaute": func(e *Effects) {
		e.DemandMultiplier *= 1.1
		scaleType(e.CFMultiplier, 0.2, model.AssetWind)
		scaleType(e.CFMultiplier, 0.3, model.AssetSolar)
	},
	"drought":      func(e *Effects) { e.HydroDerate *= 0.5 },
	"plant_outage": func(e *Effects) { e.ForcedOutage = true },
}

// Known reports whether name is a defined event.
func Known(name string) bool {
	_, ok := events[name]
	return ok
}

// Names lists the defined events.
func Names() []string {
	out := make([]string, 0, len(events))
	for n := range events {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Validate rejects unknown event names.
func Validate(names []string) error {
	for _, n := range names {
		if !Known(n) {
			return &model.ValidationError{Field: "events", Reason: fmt.Sprintf("unknown scenario event %q", n)}
		}
	}
	return nil
}

// Compose applies events in list order onto neutral effects.
func Compose(names []string) (Effects, error) {
	if err := Validate(names); err != nil {
		return Effects{}, err
	}
	e := Neutral()
	for _, n := range names {
		events[n](&e)
	}
	e.DemandMultiplier = math.Max(0, e.DemandMultiplier)
	e.ThermalDerate = math.Max(0, e.ThermalDerate)
	e.HydroDerate = math.Max(0, e.HydroDerate)
	return e, nil
}

func multiplier(m map[model.AssetType]float64, t model.AssetType) float64 {
	if v, ok := m[t]; ok {
		return math.Max(0, v)
	}
	return 1
}

// SRMC returns the scenario adjusted marginal cost of an asset.
func (e Effects) SRMC(a model.Asset) float64 {
	return math.Max(0, a.SRMC*multiplier(e.SRMCMultiplier, a.Type))
}

// AvailableMW returns what an asset can offer in a period before locking and
// outages are considered.
func (e Effects) AvailableMW(a model.Asset, season model.Season, period int) float64 {
	switch {
	case a.Type.IsThermal():
		return math.Max(0, a.CapacityMW*e.ThermalDerate)
	case a.Type == model.AssetHydro:
		return math.Max(0, math.Min(a.CapacityMW*e.HydroDerate, a.MaxHydroMW()))
	case a.Type.IsRenewable():
		cf := a.CapacityFactor(season, period) * multiplier(e.CFMultiplier, a.Type)
		return a.CapacityMW * math.Min(1, math.Max(0, cf))
	default:
		return math.Max(0, a.CapacityMW)
	}
}

// AvailabilityTable computes per-asset, per-period availability for a
// round. Locked assets and the outage unit report zero.
func (e Effects) AvailabilityTable(teams []model.Team, round model.RoundConfig, outage *model.ForcedOutage) map[string][model.PeriodsPerRound]float64 {
	out := make(map[string][model.PeriodsPerRound]float64)
	for _, t := range teams {
		for _, a := range t.Assets {
			var row [model.PeriodsPerRound]float64
			if round.IsUnlocked(a.Type) && (outage == nil || outage.AssetID != a.ID) {
				for p := range row {
					row[p] = e.AvailableMW(a, round.Season, p)
				}
			}
			out[a.ID] = row
		}
	}
	return out
}

// DrawOutage picks one team, then one of its unlocked thermal assets. It
// returns nil when no team owns an eligible asset.
func DrawOutage(rng *rand.Rand, teams []model.Team, round model.RoundConfig) *model.ForcedOutage {
	type candidate struct{ team, asset string }
	byTeam := make([][]candidate, 0, len(teams))
	for _, t := range teams {
		var cs []candidate
		for _, a := range t.Assets {
			if a.Type.IsThermal() && round.IsUnlocked(a.Type) {
				cs = append(cs, candidate{t.ID, a.ID})
			}
		}
		if len(cs) > 0 {
			byTeam = append(byTeam, cs)
		}
	}
	if len(byTeam) == 0 {
		return nil
	}
	cs := byTeam[rng.IntN(len(byTeam))]
	c := cs[rng.IntN(len(cs))]
	return &model.ForcedOutage{TeamID: c.team, AssetID: c.asset}
}
