package model

import "time"

// DispatchedBand is the clearing outcome of one offered band.
type DispatchedBand struct {
	TeamID       string    `json:"team_id"`
	AssetID      string    `json:"asset_id"`
	AssetType    AssetType `json:"asset_type"`
	BandIndex    int       `json:"band_index"`
	PriceMWh     float64   `json:"price_mwh"`
	OfferedMW    float64   `json:"offered_mw"`
	DispatchedMW float64   `json:"dispatched_mw"`
}

// DispatchResult is the market outcome of one period.
type DispatchResult struct {
	Period            int              `json:"period"`
	DemandMW          float64          `json:"demand_mw"`
	ChargingMW        float64          `json:"charging_mw"`
	TotalAvailableMW  float64          `json:"total_available_mw"`
	TotalOfferedMW    float64          `json:"total_offered_mw"`
	ClearingPriceMWh  float64          `json:"clearing_price_mwh"`
	EffectivePriceMWh float64          `json:"effective_price_mwh"`
	ReserveMargin     float64          `json:"reserve_margin"`
	Scarcity          bool             `json:"scarcity"`
	Oversupply        bool             `json:"oversupply"`
	Bands             []DispatchedBand `json:"bands"`
}

// DispatchedMW sums dispatched quantities across all bands.
func (r DispatchResult) DispatchedMW() float64 {
	var sum float64
	for _, b := range r.Bands {
		sum += b.DispatchedMW
	}
	return sum
}

// AssetDispatchedMW sums dispatched quantities of one asset.
func (r DispatchResult) AssetDispatchedMW(assetID string) float64 {
	var sum float64
	for _, b := range r.Bands {
		if b.AssetID == assetID {
			sum += b.DispatchedMW
		}
	}
	return sum
}

// AssetPeriodResult is the ledger line of one asset in one period.
type AssetPeriodResult struct {
	Period              int     `json:"period"`
	AvailableMW         float64 `json:"available_mw"`
	OfferedMW           float64 `json:"offered_mw"`
	DispatchedMW        float64 `json:"dispatched_mw"`
	ChargedMW           float64 `json:"charged_mw,omitempty"`
	RevenueDollars      float64 `json:"revenue_dollars"`
	VariableCostDollars float64 `json:"variable_cost_dollars"`
	StartupCostDollars  float64 `json:"startup_cost_dollars"`
	ChargeCostDollars   float64 `json:"charge_cost_dollars,omitempty"`
	ProfitDollars       float64 `json:"profit_dollars"`
	SOCMWh              float64 `json:"soc_mwh,omitempty"`
	WaterMWh            float64 `json:"water_mwh,omitempty"`
}

// AssetRoundResult aggregates an asset over the four periods of a round.
type AssetRoundResult struct {
	AssetID             string              `json:"asset_id"`
	AssetType           AssetType           `json:"asset_type"`
	DispatchedMWh       float64             `json:"dispatched_mwh"`
	RevenueDollars      float64             `json:"revenue_dollars"`
	VariableCostDollars float64             `json:"variable_cost_dollars"`
	StartupCostDollars  float64             `json:"startup_cost_dollars"`
	ChargeCostDollars   float64             `json:"charge_cost_dollars"`
	ProfitDollars       float64             `json:"profit_dollars"`
	Periods             []AssetPeriodResult `json:"periods"`
}

// WithholdingFlag marks a team that held back capacity during scarcity.
type WithholdingFlag struct {
	TeamID      string  `json:"team_id"`
	Period      int     `json:"period"`
	WithheldMW  float64 `json:"withheld_mw"`
	AvailableMW float64 `json:"available_mw"`
	Share       float64 `json:"share"`
}

// TeamRoundResult is the settlement of one team for one round.
type TeamRoundResult struct {
	TeamID                  string             `json:"team_id"`
	Round                   int                `json:"round"`
	Assets                  []AssetRoundResult `json:"assets"`
	RevenueDollars          float64            `json:"revenue_dollars"`
	CostDollars             float64            `json:"cost_dollars"`
	StartupCostDollars      float64            `json:"startup_cost_dollars"`
	ProfitDollars           float64            `json:"profit_dollars"`
	ReserveMargin           float64            `json:"reserve_margin"`
	BalancingPenaltyDollars float64            `json:"balancing_penalty_dollars"`
	NetProfitDollars        float64            `json:"net_profit_dollars"`
	Withholding             []WithholdingFlag  `json:"withholding,omitempty"`
}

// ForcedOutage is the unit taken offline for a whole round.
type ForcedOutage struct {
	TeamID  string `json:"team_id"`
	AssetID string `json:"asset_id"`
}

// RoundResult is published once all four periods are cleared and settled.
type RoundResult struct {
	Round       int               `json:"round"`
	Name        string            `json:"name"`
	Season      Season            `json:"season"`
	Events      []string          `json:"events,omitempty"`
	Outage      *ForcedOutage     `json:"outage,omitempty"`
	Periods     []DispatchResult  `json:"periods"`
	Teams       []TeamRoundResult `json:"teams"`
	Withholding []WithholdingFlag `json:"withholding,omitempty"`
	SettledAt   time.Time         `json:"settled_at"`
}

// Team returns the settlement of one team.
func (r RoundResult) Team(id string) (TeamRoundResult, bool) {
	for _, t := range r.Teams {
		if t.TeamID == id {
			return t, true
		}
	}
	return TeamRoundResult{}, false
}
