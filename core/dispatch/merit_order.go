package dispatch

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kilianp07/gridmarket/core/model"
)

// oversupplyRatio is the offered/demand ratio at which the price floor applies.
const oversupplyRatio = 3.0

// scarcityHours is the part of a period served at the price cap during a
// shortfall. The rest settles at the restored price.
const scarcityHours = 1.0

const epsilon = 1e-9

// Offer is one priced band entering the clearing of a period.
type Offer struct {
	TeamID    string
	AssetID   string
	AssetType model.AssetType
	BandIndex int
	PriceMWh  float64
	OfferedMW float64
	// SRMC is the scenario-adjusted marginal cost used for the restored price.
	SRMC float64
}

// Request gathers everything needed to clear one period.
type Request struct {
	Period int
	// DemandMW is the system demand before battery charging.
	DemandMW float64
	// ChargingMW is added to DemandMW for the clearing pass.
	ChargingMW       float64
	TotalAvailableMW float64
	Offers           []Offer
}

// Clearer computes the market outcome of a single period.
type Clearer interface {
	Clear(req Request) (model.DispatchResult, error)
}

// MeritOrder clears a uniform-price auction in price order with pro-rata
// allocation across the marginal price group.
type MeritOrder struct{}

// NewMeritOrder returns the default clearer.
func NewMeritOrder() MeritOrder { return MeritOrder{} }

func validateRequest(req Request) error {
	if !model.ValidPeriod(req.Period) {
		return &model.ValidationError{Field: "period", Reason: fmt.Sprintf("%d out of range", req.Period)}
	}
	for name, v := range map[string]float64{
		"demand_mw":          req.DemandMW,
		"charging_mw":        req.ChargingMW,
		"total_available_mw": req.TotalAvailableMW,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &model.ValidationError{Field: name, Reason: "must be a finite non-negative number"}
		}
	}
	for i, o := range req.Offers {
		if math.IsNaN(o.PriceMWh) || math.IsNaN(o.OfferedMW) {
			return &model.ValidationError{Field: fmt.Sprintf("offers[%d]", i), Reason: "NaN value"}
		}
	}
	return nil
}

// eligible drops empty bands and forces renewable bands to a zero price.
func eligible(in []Offer) []Offer {
	out := make([]Offer, 0, len(in))
	for _, o := range in {
		if o.OfferedMW <= 0 {
			continue
		}
		if o.AssetType.IsRenewable() {
			o.PriceMWh = 0
		}
		out = append(out, o)
	}
	return out
}

// sortOffers orders bands by price. Ties keep renewables first, then fall
// back to team, asset and band so the order never depends on input order.
func sortOffers(offers []Offer) {
	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]
		if a.PriceMWh != b.PriceMWh {
			return a.PriceMWh < b.PriceMWh
		}
		ar, br := a.AssetType.IsRenewable(), b.AssetType.IsRenewable()
		if ar != br {
			return ar
		}
		if a.TeamID != b.TeamID {
			return a.TeamID < b.TeamID
		}
		if a.AssetID != b.AssetID {
			return a.AssetID < b.AssetID
		}
		return a.BandIndex < b.BandIndex
	})
}

// ReserveMargin returns (available - demand) / available. With no available
// capacity the margin is 0 for zero demand and -1 otherwise.
func ReserveMargin(availableMW, demandMW float64) float64 {
	if availableMW <= 0 {
		if demandMW <= 0 {
			return 0
		}
		return -1
	}
	return (availableMW - demandMW) / availableMW
}

// EffectiveScarcityPrice blends one hour at the cap with the restored price
// for the rest of the period.
func EffectiveScarcityPrice(restoredPrice float64) float64 {
	capShare := scarcityHours / model.PeriodHours
	return capShare*model.PriceCap + (1-capShare)*restoredPrice
}

// Clear runs the merit order for one period.
func (MeritOrder) Clear(req Request) (model.DispatchResult, error) {
	start := time.Now()
	if err := validateRequest(req); err != nil {
		return model.DispatchResult{}, err
	}
	demand := req.DemandMW + req.ChargingMW
	offers := eligible(req.Offers)
	sortOffers(offers)

	var offered float64
	for _, o := range offers {
		offered += o.OfferedMW
	}
	res := model.DispatchResult{
		Period:           req.Period,
		DemandMW:         demand,
		ChargingMW:       req.ChargingMW,
		TotalAvailableMW: req.TotalAvailableMW,
		TotalOfferedMW:   offered,
		ReserveMargin:    ReserveMargin(req.TotalAvailableMW, demand),
	}
	dispatched := make([]float64, len(offers))

	switch {
	case demand <= 0:
		if len(offers) > 0 {
			res.ClearingPriceMWh = offers[0].PriceMWh
		}
		res.EffectivePriceMWh = res.ClearingPriceMWh
	case offered < demand:
		res.Scarcity = true
		var restored float64
		for i, o := range offers {
			dispatched[i] = o.OfferedMW
			if o.SRMC > restored {
				restored = o.SRMC
			}
		}
		res.ClearingPriceMWh = model.PriceCap
		res.EffectivePriceMWh = EffectiveScarcityPrice(restored)
	default:
		res.ClearingPriceMWh = allocate(offers, demand, dispatched)
		if offered >= oversupplyRatio*demand {
			res.Oversupply = true
			res.ClearingPriceMWh = model.PriceFloor
		}
		res.EffectivePriceMWh = res.ClearingPriceMWh
	}

	res.Bands = make([]model.DispatchedBand, len(offers))
	for i, o := range offers {
		res.Bands[i] = model.DispatchedBand{
			TeamID:       o.TeamID,
			AssetID:      o.AssetID,
			AssetType:    o.AssetType,
			BandIndex:    o.BandIndex,
			PriceMWh:     o.PriceMWh,
			OfferedMW:    o.OfferedMW,
			DispatchedMW: dispatched[i],
		}
	}
	observeClearing(res, time.Since(start))
	return res, nil
}

// allocate fills dispatched for sorted offers against a demand that the
// offers can cover and returns the marginal price.
func allocate(offers []Offer, demand float64, dispatched []float64) float64 {
	var cum float64
	marginal := len(offers) - 1
	for i, o := range offers {
		cum += o.OfferedMW
		if cum >= demand-epsilon {
			marginal = i
			break
		}
	}
	price := offers[marginal].PriceMWh

	var below, groupTotal float64
	first, last := -1, -1
	for i, o := range offers {
		switch {
		case o.PriceMWh < price:
			dispatched[i] = o.OfferedMW
			below += o.OfferedMW
		case o.PriceMWh == price:
			if first < 0 {
				first = i
			}
			last = i
			groupTotal += o.OfferedMW
		}
	}
	remaining := demand - below
	if remaining <= 0 || groupTotal <= 0 {
		return price
	}

	largest := first
	var assigned float64
	for i := first; i <= last; i++ {
		share := remaining * offers[i].OfferedMW / groupTotal
		if share > offers[i].OfferedMW {
			share = offers[i].OfferedMW
		}
		dispatched[i] = share
		assigned += share
		if offers[i].OfferedMW > offers[largest].OfferedMW {
			largest = i
		}
	}
	dispatched[largest] += remaining - assigned
	return price
}
