package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/gridmarket/core/factory"
	"github.com/kilianp07/gridmarket/core/model"
)

// TeamDef is one team of a scenario. An empty strategy bids at marginal cost.
type TeamDef struct {
	ID       string               `yaml:"id"`
	Strategy factory.ModuleConfig `yaml:"strategy,omitempty"`
}

// Expected lists the checks applied to a finished scenario. Unset fields
// are skipped. ZeroProfitRounds lists rounds in which no team may earn or
// lose money.
type Expected struct {
	Rounds              int      `yaml:"rounds"`
	Winner              string   `yaml:"winner,omitempty"`
	MaxClearingPrice    *float64 `yaml:"max_clearing_price,omitempty"`
	ZeroProfitRounds    []int    `yaml:"zero_profit_rounds,omitempty"`
	MinWithholdingFlags int      `yaml:"min_withholding_flags,omitempty"`
	AcceptedBids        int      `yaml:"accepted_bids,omitempty"`
}

// Scenario scripts a whole game played by bots. Demand overrides the
// forecast of the listed round indexes.
type Scenario struct {
	Name        string               `yaml:"name"`
	Description string               `yaml:"description,omitempty"`
	Mode        string               `yaml:"mode"`
	Seed        uint64               `yaml:"seed"`
	Teams       []TeamDef            `yaml:"teams"`
	Balancing   factory.ModuleConfig `yaml:"balancing,omitempty"`
	Demand      map[int][]float64    `yaml:"demand,omitempty"`
	Expected    Expected             `yaml:"expected"`
}

func (s Scenario) GameConfig() model.GameConfig {
	cfg := model.GameConfig{Mode: s.Mode, Seed: s.Seed}
	for _, t := range s.Teams {
		cfg.Teams = append(cfg.Teams, model.TeamConfig{ID: t.ID})
	}
	return cfg
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	return &sc, nil
}
