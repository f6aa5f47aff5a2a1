package model

import (
	"fmt"
	"math"
)

// AssetType names one of the fixed generation or storage archetypes.
type AssetType string

const (
	AssetCoal      AssetType = "coal"
	AssetGasCCGT   AssetType = "gas_ccgt"
	AssetGasPeaker AssetType = "gas_peaker"
	AssetHydro     AssetType = "hydro"
	AssetWind      AssetType = "wind"
	AssetSolar     AssetType = "solar"
	AssetBattery   AssetType = "battery"
)

// AllAssetTypes lists the archetypes in portfolio order.
var AllAssetTypes = []AssetType{
	AssetCoal, AssetGasCCGT, AssetGasPeaker, AssetHydro, AssetWind, AssetSolar, AssetBattery,
}

// Valid reports whether t is a known archetype.
func (t AssetType) Valid() bool {
	for _, a := range AllAssetTypes {
		if a == t {
			return true
		}
	}
	return false
}

// IsThermal is true for fuel-burning plant with startup costs.
func (t AssetType) IsThermal() bool {
	return t == AssetCoal || t == AssetGasCCGT || t == AssetGasPeaker
}

// IsRenewable is true for weather-driven plant whose offers clear at zero.
func (t AssetType) IsRenewable() bool { return t == AssetWind || t == AssetSolar }

// BatteryState is the storage payload of a battery asset.
type BatteryState struct {
	DurationHours    float64 `json:"duration_hours"`
	ChargeEfficiency float64 `json:"charge_efficiency"`
	SOCMWh           float64 `json:"soc_mwh"`
}

// HydroState is the reservoir payload of a hydro asset.
type HydroState struct {
	InitialWaterMWh   float64 `json:"initial_water_mwh"`
	WaterRemainingMWh float64 `json:"water_remaining_mwh"`
}

// ThermalState carries the unit commitment payload of a thermal asset.
type ThermalState struct {
	StartupCost float64 `json:"startup_cost"`
	// WasRunning reports whether the unit produced in the last period of the
	// previous round.
	WasRunning bool `json:"was_running"`
}

// RenewableProfile holds capacity factors indexed by season then period.
type RenewableProfile struct {
	CapacityFactors map[Season][PeriodsPerRound]float64 `json:"capacity_factors"`
}

// Asset is one unit of a team portfolio. Exactly one kind payload is set,
// matching Type.
type Asset struct {
	ID         string    `json:"id"`
	TeamID     string    `json:"team_id"`
	Name       string    `json:"name"`
	Type       AssetType `json:"type"`
	CapacityMW float64   `json:"capacity_mw"`
	SRMC       float64   `json:"srmc_mwh"`

	Battery   *BatteryState     `json:"battery,omitempty"`
	Hydro     *HydroState       `json:"hydro,omitempty"`
	Thermal   *ThermalState     `json:"thermal,omitempty"`
	Renewable *RenewableProfile `json:"renewable,omitempty"`
}

// Validate checks the asset payload against its type.
func (a Asset) Validate() error {
	if !a.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown asset type %q", a.Type)}
	}
	if a.CapacityMW < 0 {
		return &ValidationError{Field: "capacity_mw", Reason: "must be non-negative"}
	}
	switch {
	case a.Type == AssetBattery:
		if a.Battery == nil {
			return &ValidationError{Field: "battery", Reason: "missing battery payload"}
		}
		if a.Battery.ChargeEfficiency <= 0 || a.Battery.ChargeEfficiency > 1 {
			return &ValidationError{Field: "battery.charge_efficiency", Reason: "must be in (0, 1]"}
		}
		if a.Battery.SOCMWh < 0 || a.Battery.SOCMWh > a.EnergyCapacityMWh() {
			return &ValidationError{Field: "battery.soc_mwh", Reason: "outside storage bounds"}
		}
	case a.Type == AssetHydro:
		if a.Hydro == nil {
			return &ValidationError{Field: "hydro", Reason: "missing hydro payload"}
		}
		if a.Hydro.WaterRemainingMWh < 0 || a.Hydro.WaterRemainingMWh > a.Hydro.InitialWaterMWh {
			return &ValidationError{Field: "hydro.water_remaining_mwh", Reason: "outside reservoir bounds"}
		}
	case a.Type.IsThermal():
		if a.Thermal == nil {
			return &ValidationError{Field: "thermal", Reason: "missing thermal payload"}
		}
	case a.Type.IsRenewable():
		if a.Renewable == nil {
			return &ValidationError{Field: "renewable", Reason: "missing capacity factors"}
		}
	}
	return nil
}

// EnergyCapacityMWh returns the storage size of a battery, zero otherwise.
func (a Asset) EnergyCapacityMWh() float64 {
	if a.Battery == nil {
		return 0
	}
	return a.CapacityMW * a.Battery.DurationHours
}

// CapacityFactor returns the renewable capacity factor for a season and
// period. Non-renewable assets report 1.
func (a Asset) CapacityFactor(s Season, period int) float64 {
	if a.Renewable == nil {
		return 1
	}
	cf, ok := a.Renewable.CapacityFactors[s]
	if !ok || !ValidPeriod(period) {
		return 0
	}
	return cf[period]
}

// StartupCost returns the fixed cost of bringing a thermal unit online.
func (a Asset) StartupCost() float64 {
	if a.Thermal == nil {
		return 0
	}
	return a.Thermal.StartupCost
}

// MaxHydroMW returns the hydro output that the reservoir can sustain for a
// whole period.
func (a Asset) MaxHydroMW() float64 {
	if a.Hydro == nil {
		return 0
	}
	return math.Min(a.CapacityMW, a.Hydro.WaterRemainingMWh/PeriodHours)
}

// Clone returns a deep copy so per-round working copies never alias.
func (a Asset) Clone() Asset {
	out := a
	if a.Battery != nil {
		b := *a.Battery
		out.Battery = &b
	}
	if a.Hydro != nil {
		h := *a.Hydro
		out.Hydro = &h
	}
	if a.Thermal != nil {
		t := *a.Thermal
		out.Thermal = &t
	}
	if a.Renewable != nil {
		cf := make(map[Season][PeriodsPerRound]float64, len(a.Renewable.CapacityFactors))
		for k, v := range a.Renewable.CapacityFactors {
			cf[k] = v
		}
		out.Renewable = &RenewableProfile{CapacityFactors: cf}
	}
	return out
}
