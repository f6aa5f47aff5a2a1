// Package ledger runs the four clearing passes of a round and settles every
// asset: revenue, variable and startup costs, battery charging, storage and
// water depletion.
package ledger

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/gridmarket/core/bidding"
	"github.com/kilianp07/gridmarket/core/dispatch"
	"github.com/kilianp07/gridmarket/core/model"
	"github.com/kilianp07/gridmarket/core/scenario"
	"github.com/kilianp07/gridmarket/core/withholding"
)

// Input is the frozen state of a round once bidding closes.
type Input struct {
	Round model.RoundConfig
	Teams []model.Team
	Book  *bidding.Book
	// Effects are the composed scenario effects of the round.
	Effects scenario.Effects
	// Availability is indexed by asset id.
	Availability map[string][model.PeriodsPerRound]float64
	DemandMW     []float64
	Outage       *model.ForcedOutage
	Now          func() time.Time
}

// Settlement is the outcome of a round. Teams carry the updated asset state;
// cumulative profit and history are left to the caller.
type Settlement struct {
	Result model.RoundResult
	Teams  []model.Team
}

// Calculator settles rounds with a pluggable clearer.
type Calculator struct {
	clearer dispatch.Clearer
}

// NewCalculator returns a Calculator. A nil clearer selects the merit order.
func NewCalculator(c dispatch.Clearer) *Calculator {
	if c == nil {
		c = dispatch.NewMeritOrder()
	}
	return &Calculator{clearer: c}
}

// slot is the working state of one asset during a round.
type slot struct {
	team  string
	asset model.Asset
	srmc  float64
	res   model.AssetRoundResult
	// prevMW is the dispatch of the previous period.
	prevMW float64
}

// BatteryMW converts a battery bid into a charge or discharge rate for one
// period, bounded by the power rating, the stored energy and the headroom.
func BatteryMW(a model.Asset, bid model.BatteryBid, powerMW float64) float64 {
	if a.Battery == nil || bid.Mode == model.BatteryIdle {
		return 0
	}
	soc := a.Battery.SOCMWh
	eff := a.Battery.ChargeEfficiency
	mw := bid.MW
	switch bid.Mode {
	case model.BatteryCharge:
		if bid.TargetSOCMWh != nil {
			mw = (*bid.TargetSOCMWh - soc) / (model.PeriodHours * eff)
		}
		mw = math.Min(mw, (a.EnergyCapacityMWh()-soc)/(model.PeriodHours*eff))
	case model.BatteryDischarge:
		if bid.TargetSOCMWh != nil {
			mw = (soc - *bid.TargetSOCMWh) / model.PeriodHours
		}
		mw = math.Min(mw, soc/model.PeriodHours)
	}
	return math.Max(0, math.Min(mw, powerMW))
}

// capBands truncates bands in order so their total does not exceed limit.
func capBands(bands []model.BidBand, limit float64) []model.BidBand {
	out := make([]model.BidBand, 0, len(bands))
	left := math.Max(0, limit)
	for _, b := range bands {
		mw := math.Min(b.OfferedMW, left)
		left -= mw
		out = append(out, model.BidBand{PriceMWh: b.PriceMWh, OfferedMW: mw})
	}
	return out
}

func sumBands(bands []model.BidBand) float64 {
	var s float64
	for _, b := range bands {
		s += b.OfferedMW
	}
	return s
}

// Settle clears each period in order and applies the ledger to every asset.
// Battery and hydro state evolves between periods, so periods are never
// cleared in parallel.
//
//gocyclo:ignore
func (c *Calculator) Settle(in Input) (Settlement, error) {
	if len(in.DemandMW) != model.PeriodsPerRound {
		return Settlement{}, &model.ValidationError{Field: "demand_mw", Reason: fmt.Sprintf("need %d periods, got %d", model.PeriodsPerRound, len(in.DemandMW))}
	}
	if in.Book == nil {
		return Settlement{}, &model.ValidationError{Field: "book", Reason: "missing bid book"}
	}
	now := time.Now
	if in.Now != nil {
		now = in.Now
	}

	var slots []*slot
	teamSlots := make(map[string][]*slot, len(in.Teams))
	for _, t := range in.Teams {
		for _, a := range t.Assets {
			s := &slot{team: t.ID, asset: a.Clone(), srmc: in.Effects.SRMC(a)}
			s.res = model.AssetRoundResult{AssetID: a.ID, AssetType: a.Type}
			if a.Thermal != nil && a.Thermal.WasRunning {
				s.prevMW = 1
			}
			slots = append(slots, s)
			teamSlots[t.ID] = append(teamSlots[t.ID], s)
		}
	}

	result := model.RoundResult{
		Round:  in.Round.Index,
		Name:   in.Round.Name,
		Season: in.Round.Season,
		Events: append([]string(nil), in.Round.Events...),
		Outage: in.Outage,
	}
	teamAvail := make(map[string][]float64, len(in.Teams))
	teamDispatched := make(map[string][]float64, len(in.Teams))

	for p := 0; p < model.PeriodsPerRound; p++ {
		req := dispatch.Request{Period: p, DemandMW: math.Max(0, in.DemandMW[p])}
		lines := make(map[*slot]*model.AssetPeriodResult, len(slots))
		var positions []withholding.Position
		for _, s := range slots {
			avail := in.Availability[s.asset.ID][p]
			line := &model.AssetPeriodResult{Period: p, AvailableMW: avail}
			lines[s] = line
			req.TotalAvailableMW += avail
			entry, ok := in.Book.Get(s.team, s.asset.ID, p)
			switch {
			case !ok || avail <= 0:
			case s.asset.Type == model.AssetBattery && entry.Battery != nil:
				mw := BatteryMW(s.asset, *entry.Battery, avail)
				switch entry.Battery.Mode {
				case model.BatteryCharge:
					line.ChargedMW = mw
					req.ChargingMW += mw
				case model.BatteryDischarge:
					line.OfferedMW = mw
					req.Offers = append(req.Offers, dispatch.Offer{
						TeamID: s.team, AssetID: s.asset.ID, AssetType: s.asset.Type,
						PriceMWh: entry.Battery.PriceMWh, OfferedMW: mw, SRMC: s.srmc,
					})
				}
			default:
				limit := avail
				if s.asset.Type == model.AssetHydro {
					limit = math.Min(limit, s.asset.MaxHydroMW())
				}
				bands := capBands(entry.Bands, limit)
				line.OfferedMW = sumBands(bands)
				for i, b := range bands {
					req.Offers = append(req.Offers, dispatch.Offer{
						TeamID: s.team, AssetID: s.asset.ID, AssetType: s.asset.Type, BandIndex: i,
						PriceMWh: b.PriceMWh, OfferedMW: b.OfferedMW, SRMC: s.srmc,
					})
				}
			}
			positions = append(positions, withholding.Position{
				TeamID: s.team, AssetType: s.asset.Type, AvailableMW: avail, OfferedMW: line.OfferedMW,
			})
		}

		res, err := c.clearer.Clear(req)
		if err != nil {
			return Settlement{}, fmt.Errorf("clear period %d: %w", p, err)
		}
		result.Periods = append(result.Periods, res)
		if res.Scarcity {
			result.Withholding = append(result.Withholding, withholding.Evaluate(p, positions)...)
		}

		price := res.EffectivePriceMWh
		perTeamAvail := map[string]float64{}
		perTeamDispatched := map[string]float64{}
		for _, s := range slots {
			line := lines[s]
			mw := res.AssetDispatchedMW(s.asset.ID)
			line.DispatchedMW = mw
			line.RevenueDollars = mw * model.PeriodHours * price
			line.VariableCostDollars = mw * model.PeriodHours * s.srmc
			if mw > 0 && s.prevMW <= 0 {
				line.StartupCostDollars = s.asset.StartupCost()
			}
			if line.ChargedMW > 0 {
				line.ChargeCostDollars = line.ChargedMW * model.PeriodHours * price
			}
			line.ProfitDollars = line.RevenueDollars - line.VariableCostDollars - line.StartupCostDollars - line.ChargeCostDollars

			switch {
			case s.asset.Battery != nil:
				b := s.asset.Battery
				b.SOCMWh += line.ChargedMW * model.PeriodHours * b.ChargeEfficiency
				b.SOCMWh -= mw * model.PeriodHours
				b.SOCMWh = math.Min(s.asset.EnergyCapacityMWh(), math.Max(0, b.SOCMWh))
				line.SOCMWh = b.SOCMWh
			case s.asset.Hydro != nil:
				h := s.asset.Hydro
				h.WaterRemainingMWh = math.Max(0, h.WaterRemainingMWh-mw*model.PeriodHours)
				line.WaterMWh = h.WaterRemainingMWh
			}
			s.prevMW = mw
			s.res.Periods = append(s.res.Periods, *line)
			s.res.DispatchedMWh += mw * model.PeriodHours
			s.res.RevenueDollars += line.RevenueDollars
			s.res.VariableCostDollars += line.VariableCostDollars
			s.res.StartupCostDollars += line.StartupCostDollars
			s.res.ChargeCostDollars += line.ChargeCostDollars
			s.res.ProfitDollars += line.ProfitDollars
			perTeamAvail[s.team] += line.AvailableMW
			perTeamDispatched[s.team] += mw
		}
		for id := range teamSlots {
			teamAvail[id] = append(teamAvail[id], perTeamAvail[id])
			teamDispatched[id] = append(teamDispatched[id], perTeamDispatched[id])
		}
	}

	out := Settlement{Teams: make([]model.Team, len(in.Teams))}
	for i, t := range in.Teams {
		nt := t
		nt.Assets = make([]model.Asset, 0, len(teamSlots[t.ID]))
		tr := model.TeamRoundResult{TeamID: t.ID, Round: in.Round.Index}
		for _, s := range teamSlots[t.ID] {
			if s.asset.Thermal != nil {
				s.asset.Thermal.WasRunning = s.prevMW > 0
			}
			nt.Assets = append(nt.Assets, s.asset)
			tr.Assets = append(tr.Assets, s.res)
			tr.RevenueDollars += s.res.RevenueDollars
			tr.CostDollars += s.res.VariableCostDollars + s.res.StartupCostDollars + s.res.ChargeCostDollars
			tr.StartupCostDollars += s.res.StartupCostDollars
		}
		tr.ProfitDollars = tr.RevenueDollars - tr.CostDollars
		tr.NetProfitDollars = tr.ProfitDollars
		tr.ReserveMargin = TeamReserveMargin(teamAvail[t.ID], teamDispatched[t.ID])
		for _, f := range result.Withholding {
			if f.TeamID == t.ID {
				tr.Withholding = append(tr.Withholding, f)
			}
		}
		out.Teams[i] = nt
		result.Teams = append(result.Teams, tr)
	}
	result.SettledAt = now()
	out.Result = result
	return out, nil
}

// TeamReserveMargin averages the unused share of a team's available capacity
// over the periods in which it had any. A team with nothing available keeps a
// full margin.
func TeamReserveMargin(avail, dispatched []float64) float64 {
	var margins []float64
	for i, a := range avail {
		if a <= 0 {
			continue
		}
		var d float64
		if i < len(dispatched) {
			d = dispatched[i]
		}
		margins = append(margins, (a-d)/a)
	}
	if len(margins) == 0 {
		return 1
	}
	return stat.Mean(margins, nil)
}
