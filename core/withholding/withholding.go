// Package withholding flags teams that keep dispatchable capacity out of the
// market while the system is short.
package withholding

import (
	"sort"

	"github.com/kilianp07/gridmarket/core/model"
)

// Threshold is the share of a team's available capacity above which withheld
// thermal and hydro megawatts are flagged.
const Threshold = 0.25

// Position is what one asset could offer in a period and what it did offer.
type Position struct {
	TeamID      string
	AssetType   model.AssetType
	AvailableMW float64
	OfferedMW   float64
}

// Evaluate returns one flag per team whose withheld thermal and hydro
// capacity exceeds Threshold of its total available capacity. Flags are
// ordered by team id. It should only be called for scarcity periods.
func Evaluate(period int, positions []Position) []model.WithholdingFlag {
	type agg struct{ withheld, available float64 }
	teams := map[string]*agg{}
	for _, p := range positions {
		a, ok := teams[p.TeamID]
		if !ok {
			a = &agg{}
			teams[p.TeamID] = a
		}
		a.available += p.AvailableMW
		if p.AssetType.IsThermal() || p.AssetType == model.AssetHydro {
			if w := p.AvailableMW - p.OfferedMW; w > 0 {
				a.withheld += w
			}
		}
	}
	var flags []model.WithholdingFlag
	for id, a := range teams {
		if a.available <= 0 {
			continue
		}
		share := a.withheld / a.available
		if share > Threshold {
			flags = append(flags, model.WithholdingFlag{
				TeamID:      id,
				Period:      period,
				WithheldMW:  a.withheld,
				AvailableMW: a.available,
				Share:       share,
			})
		}
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].TeamID < flags[j].TeamID })
	return flags
}
