package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/gridmarket/core/model"
)

var defaultSpecs = map[model.AssetType]model.AssetSpec{
	model.AssetCoal:      {Name: "Coal", CapacityMW: 800, SRMC: 35, StartupCost: 50000},
	model.AssetGasCCGT:   {Name: "Gas CCGT", CapacityMW: 500, SRMC: 75, StartupCost: 20000},
	model.AssetGasPeaker: {Name: "Gas Peaker", CapacityMW: 200, SRMC: 150, StartupCost: 5000},
	model.AssetHydro:     {Name: "Hydro", CapacityMW: 250, SRMC: 8, InitialWaterMWh: 3000},
	model.AssetWind:      {Name: "Wind", CapacityMW: 300},
	model.AssetSolar:     {Name: "Solar", CapacityMW: 200},
	model.AssetBattery:   {Name: "Battery", CapacityMW: 100, DurationHours: 4, ChargeEfficiency: 0.92, InitialSOCMWh: 200},
}

var capacityFactors = map[model.AssetType]map[model.Season][model.PeriodsPerRound]float64{
	model.AssetWind: {
		model.SeasonSummer: {0.35, 0.25, 0.20, 0.30},
		model.SeasonAutumn: {0.45, 0.40, 0.35, 0.45},
		model.SeasonWinter: {0.50, 0.45, 0.40, 0.50},
		model.SeasonSpring: {0.40, 0.35, 0.30, 0.40},
	},
	model.AssetSolar: {
		model.SeasonSummer: {0, 0.55, 0.80, 0.15},
		model.SeasonAutumn: {0, 0.30, 0.50, 0.05},
		model.SeasonWinter: {0, 0.15, 0.30, 0},
		model.SeasonSpring: {0, 0.40, 0.65, 0.10},
	},
}

// DefaultSpec returns the archetype parameters of t.
func DefaultSpec(t model.AssetType) (model.AssetSpec, bool) {
	s, ok := defaultSpecs[t]
	return s, ok
}

// Spec merges the preset override of t over its default.
func Spec(t model.AssetType, preset *model.AssetConfigPreset) model.AssetSpec {
	s := defaultSpecs[t]
	if preset == nil {
		return s
	}
	o, ok := preset.Assets[t]
	if !ok {
		return s
	}
	if o.Name != "" {
		s.Name = o.Name
	}
	if o.CapacityMW > 0 {
		s.CapacityMW = o.CapacityMW
	}
	if o.SRMC != 0 {
		s.SRMC = o.SRMC
	}
	if o.StartupCost > 0 {
		s.StartupCost = o.StartupCost
	}
	if o.DurationHours > 0 {
		s.DurationHours = o.DurationHours
	}
	if o.ChargeEfficiency > 0 {
		s.ChargeEfficiency = o.ChargeEfficiency
	}
	if o.InitialSOCMWh > 0 {
		s.InitialSOCMWh = o.InitialSOCMWh
	}
	if o.InitialWaterMWh > 0 {
		s.InitialWaterMWh = o.InitialWaterMWh
	}
	return s
}

// BuildPortfolio returns one asset per archetype for a team. Asset ids are
// "<teamID>-<type>".
func BuildPortfolio(teamID string, preset *model.AssetConfigPreset) ([]model.Asset, error) {
	assets := make([]model.Asset, 0, len(model.AllAssetTypes))
	for _, t := range model.AllAssetTypes {
		s := Spec(t, preset)
		a := model.Asset{
			ID:         fmt.Sprintf("%s-%s", teamID, t),
			TeamID:     teamID,
			Name:       s.Name,
			Type:       t,
			CapacityMW: s.CapacityMW,
			SRMC:       s.SRMC,
		}
		switch {
		case t == model.AssetBattery:
			soc := s.InitialSOCMWh
			if max := s.CapacityMW * s.DurationHours; soc > max {
				soc = max
			}
			a.Battery = &model.BatteryState{DurationHours: s.DurationHours, ChargeEfficiency: s.ChargeEfficiency, SOCMWh: soc}
		case t == model.AssetHydro:
			a.Hydro = &model.HydroState{InitialWaterMWh: s.InitialWaterMWh, WaterRemainingMWh: s.InitialWaterMWh}
		case t.IsThermal():
			a.Thermal = &model.ThermalState{StartupCost: s.StartupCost}
		case t.IsRenewable():
			cf := make(map[model.Season][model.PeriodsPerRound]float64, 4)
			for season, v := range capacityFactors[t] {
				cf[season] = v
			}
			a.Renewable = &model.RenewableProfile{CapacityFactors: cf}
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("asset %s: %w", a.ID, err)
		}
		assets = append(assets, a)
	}
	return assets, nil
}

// ValidatePreset rejects overrides for unknown archetypes.
func ValidatePreset(p *model.AssetConfigPreset) error {
	if p == nil {
		return nil
	}
	for t, s := range p.Assets {
		if !t.Valid() {
			return &model.ValidationError{Field: "preset.assets", Reason: fmt.Sprintf("unknown asset type %q", t)}
		}
		if s.CapacityMW < 0 || s.StartupCost < 0 || s.InitialWaterMWh < 0 || s.InitialSOCMWh < 0 {
			return &model.ValidationError{Field: "preset.assets." + string(t), Reason: "negative value"}
		}
		if s.ChargeEfficiency > 1 {
			return &model.ValidationError{Field: "preset.assets." + string(t) + ".charge_efficiency", Reason: "must be at most 1"}
		}
	}
	return nil
}

// LoadPreset loads an AssetConfigPreset from a JSON or YAML file.
func LoadPreset(path string) (model.AssetConfigPreset, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.AssetConfigPreset{}, err
	}
	defer func() { _ = f.Close() }()
	return DecodePreset(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// DecodePreset reads a preset from r in the given format.
func DecodePreset(r io.Reader, format string) (model.AssetConfigPreset, error) {
	var p model.AssetConfigPreset
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&p); err != nil {
			return p, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&p); err != nil {
			return p, err
		}
	default:
		return p, fmt.Errorf("unsupported preset format: %s", format)
	}
	return p, ValidatePreset(&p)
}
