// Package demand forecasts the per-period demand of a round from the fleet
// capacity, the season shape and a bounded random variation.
package demand

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/gridmarket/core/model"
)

var seasonFractions = map[model.Season][model.PeriodsPerRound]float64{
	model.SeasonSummer: {0.45, 0.60, 0.70, 0.65},
	model.SeasonWinter: {0.50, 0.65, 0.60, 0.75},
	model.SeasonAutumn: {0.45, 0.58, 0.55, 0.65},
	model.SeasonSpring: {0.42, 0.55, 0.52, 0.60},
}

// TargetFraction returns the share of fleet capacity demanded in a period.
func TargetFraction(s model.Season, period int) float64 {
	f, ok := seasonFractions[s]
	if !ok || !model.ValidPeriod(period) {
		return 0
	}
	return f[period]
}

// FleetCapacityMW sums the nameplate capacity of every unlocked asset.
func FleetCapacityMW(teams []model.Team, round model.RoundConfig) float64 {
	var caps []float64
	for _, t := range teams {
		for _, a := range t.Assets {
			if round.IsUnlocked(a.Type) {
				caps = append(caps, a.CapacityMW)
			}
		}
	}
	return floats.Sum(caps)
}

// Model draws demand variations from a seeded source so a game replays
// identically for the same seed.
type Model struct {
	src rand.Source
}

// New returns a Model seeded with seed.
func New(seed uint64) *Model {
	return &Model{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

// Forecast returns demand for each period:
// fleet × fraction × multiplier × (1 + U(-variation, +variation)), clamped at 0.
func (m *Model) Forecast(fleetMW float64, season model.Season, multiplier, variationPct float64) []float64 {
	out := make([]float64, model.PeriodsPerRound)
	var u *distuv.Uniform
	if variationPct > 0 {
		u = &distuv.Uniform{Min: -variationPct, Max: variationPct, Src: m.src}
	}
	for p := range out {
		v := 0.0
		if u != nil {
			v = u.Rand()
		}
		out[p] = math.Max(0, fleetMW*TargetFraction(season, p)*multiplier*(1+v))
	}
	return out
}
