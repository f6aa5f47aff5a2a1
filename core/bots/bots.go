// Package bots provides scripted bidding strategies used to play headless
// games.
package bots

import (
	"fmt"
	"math"

	"github.com/kilianp07/gridmarket/core/bidding"
	"github.com/kilianp07/gridmarket/core/factory"
	"github.com/kilianp07/gridmarket/core/model"
)

// Strategy turns the bid slots of a team into a submission.
type Strategy interface {
	Name() string
	Bids(reqs []bidding.Requirement, forecastMW []float64) model.BidSubmission
}

// pricer returns the offer price and quantity of a thermal or hydro slot.
type pricer func(r bidding.Requirement, availMW float64) (price, mw float64)

// build fills every required slot: renewables at zero, hydro in the period
// of highest demand, batteries charging in the lowest demand period and
// discharging in the evening. Thermal slots use price.
func build(reqs []bidding.Requirement, forecastMW []float64, price pricer) model.BidSubmission {
	peak, trough := extremes(forecastMW)
	var sub model.BidSubmission
	for _, r := range reqs {
		if !r.Required() {
			continue
		}
		switch {
		case r.Type == model.AssetBattery:
			for p := 0; p < model.PeriodsPerRound; p++ {
				bb := &model.BatteryBid{Mode: model.BatteryIdle}
				switch {
				case p == trough:
					bb = &model.BatteryBid{Mode: model.BatteryCharge, MW: r.AvailableMW[p]}
				case p == model.PeriodsPerRound-1:
					bb = &model.BatteryBid{Mode: model.BatteryDischarge, MW: r.AvailableMW[p], PriceMWh: r.SRMC}
				}
				sub.Bids = append(sub.Bids, model.AssetBid{AssetID: r.AssetID, Period: p, Battery: bb})
			}
		case r.Type == model.AssetHydro:
			pr, mw := price(r, r.AvailableMW[peak])
			sub.Bids = append(sub.Bids, model.AssetBid{AssetID: r.AssetID, Period: peak, Bands: band(pr, mw)})
		case r.Type.IsRenewable():
			for p := 0; p < model.PeriodsPerRound; p++ {
				sub.Bids = append(sub.Bids, model.AssetBid{AssetID: r.AssetID, Period: p, Bands: band(0, r.AvailableMW[p])})
			}
		default:
			for p := 0; p < model.PeriodsPerRound; p++ {
				pr, mw := price(r, r.AvailableMW[p])
				sub.Bids = append(sub.Bids, model.AssetBid{AssetID: r.AssetID, Period: p, Bands: band(pr, mw)})
			}
		}
	}
	return sub
}

func band(price, mw float64) []model.BidBand {
	return []model.BidBand{{PriceMWh: math.Min(model.PriceCap, math.Max(model.PriceFloor, price)), OfferedMW: math.Max(0, mw)}}
}

// extremes returns the periods of highest and lowest forecast demand.
// The evening is never picked as the trough so batteries can discharge.
func extremes(forecastMW []float64) (peak, trough int) {
	peak, trough = model.PeriodsPerRound-1, 0
	if len(forecastMW) != model.PeriodsPerRound {
		return peak, trough
	}
	for p, v := range forecastMW {
		if v > forecastMW[peak] {
			peak = p
		}
		if p < model.PeriodsPerRound-1 && v < forecastMW[trough] {
			trough = p
		}
	}
	return peak, trough
}

// SRMC offers every available megawatt at marginal cost.
type SRMC struct{}

func (SRMC) Name() string { return "srmc" }

func (SRMC) Bids(reqs []bidding.Requirement, forecastMW []float64) model.BidSubmission {
	return build(reqs, forecastMW, func(r bidding.Requirement, avail float64) (float64, float64) {
		return r.SRMC, avail
	})
}

// Markup offers everything at marginal cost times Factor.
type Markup struct {
	Factor float64 `json:"factor"`
}

func (Markup) Name() string { return "markup" }

func (m Markup) Bids(reqs []bidding.Requirement, forecastMW []float64) model.BidSubmission {
	return build(reqs, forecastMW, func(r bidding.Requirement, avail float64) (float64, float64) {
		return r.SRMC * m.Factor, avail
	})
}

// Withholder offers only Share of its thermal capacity, at marginal cost.
type Withholder struct {
	Share float64 `json:"share"`
}

func (Withholder) Name() string { return "withholder" }

func (w Withholder) Bids(reqs []bidding.Requirement, forecastMW []float64) model.BidSubmission {
	return build(reqs, forecastMW, func(r bidding.Requirement, avail float64) (float64, float64) {
		if r.Type.IsThermal() {
			return r.SRMC, avail * w.Share
		}
		return r.SRMC, avail
	})
}

var registry = factory.NewRegistry[Strategy]()

func init() {
	_ = registry.Register("srmc", func(map[string]any) (Strategy, error) { return SRMC{}, nil })
	_ = registry.Register("markup", func(conf map[string]any) (Strategy, error) {
		m := Markup{Factor: 1.5}
		if err := factory.Decode(conf, &m); err != nil {
			return nil, err
		}
		if m.Factor <= 0 {
			return nil, fmt.Errorf("markup strategy: factor must be positive, got %v", m.Factor)
		}
		return m, nil
	})
	_ = registry.Register("withholder", func(conf map[string]any) (Strategy, error) {
		w := Withholder{Share: 0.5}
		if err := factory.Decode(conf, &w); err != nil {
			return nil, err
		}
		if w.Share < 0 || w.Share > 1 {
			return nil, fmt.Errorf("withholder strategy: share must be in [0, 1], got %v", w.Share)
		}
		return w, nil
	})
}

// Names lists the available strategies.
func Names() []string { return registry.Names() }

// New builds the strategy described by cfg.
func New(cfg factory.ModuleConfig) (Strategy, error) {
	return registry.Create(cfg)
}
