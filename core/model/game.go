package model

import (
	"sort"
	"time"
)

// Phase is the lifecycle state of a game.
type Phase string

const (
	PhaseLobby       Phase = "lobby"
	PhaseBriefing    Phase = "briefing"
	PhaseBidding     Phase = "bidding"
	PhaseDispatching Phase = "dispatching"
	PhaseResults     Phase = "results"
	PhaseFinal       Phase = "final"
)

// RoundConfig is the catalogue entry that parameterises one round.
type RoundConfig struct {
	Index              int         `json:"index"`
	Name               string      `json:"name"`
	Description        string      `json:"description"`
	Season             Season      `json:"season"`
	Events             []string    `json:"events,omitempty"`
	Unlocked           []AssetType `json:"unlocked"`
	BiddingSeconds     int         `json:"bidding_seconds"`
	DemandVariationPct float64     `json:"demand_variation_pct"`
}

// IsUnlocked reports whether assets of type t take part in the round.
func (r RoundConfig) IsUnlocked(t AssetType) bool {
	for _, u := range r.Unlocked {
		if u == t {
			return true
		}
	}
	return false
}

// AssetSpec overrides archetype parameters. Zero values keep the default.
type AssetSpec struct {
	Name             string  `json:"name" yaml:"name"`
	CapacityMW       float64 `json:"capacity_mw" yaml:"capacity_mw"`
	SRMC             float64 `json:"srmc_mwh" yaml:"srmc_mwh"`
	StartupCost      float64 `json:"startup_cost" yaml:"startup_cost"`
	DurationHours    float64 `json:"duration_hours" yaml:"duration_hours"`
	ChargeEfficiency float64 `json:"charge_efficiency" yaml:"charge_efficiency"`
	InitialSOCMWh    float64 `json:"initial_soc_mwh" yaml:"initial_soc_mwh"`
	InitialWaterMWh  float64 `json:"initial_water_mwh" yaml:"initial_water_mwh"`
}

// AssetConfigPreset replaces archetype parameters for every team of a game.
type AssetConfigPreset struct {
	Name   string                  `json:"name" yaml:"name"`
	Assets map[AssetType]AssetSpec `json:"assets" yaml:"assets"`
}

// TeamConfig identifies a team. Ids and colours are supplied by the caller.
type TeamConfig struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// GameConfig is the input of create_game.
type GameConfig struct {
	Mode   string             `json:"mode"`
	Teams  []TeamConfig       `json:"teams"`
	Seed   uint64             `json:"seed"`
	Preset *AssetConfigPreset `json:"preset,omitempty"`
}

// Team is a participant with its portfolio and running score.
type Team struct {
	ID                      string            `json:"id"`
	Name                    string            `json:"name"`
	Color                   string            `json:"color"`
	Assets                  []Asset           `json:"assets"`
	CumulativeProfitDollars float64           `json:"cumulative_profit_dollars"`
	Rank                    int               `json:"rank"`
	History                 []TeamRoundResult `json:"history,omitempty"`
}

// Asset returns the team asset with the given id.
func (t *Team) Asset(id string) (*Asset, bool) {
	for i := range t.Assets {
		if t.Assets[i].ID == id {
			return &t.Assets[i], true
		}
	}
	return nil, false
}

// Game is the aggregate owned by the lifecycle manager.
type Game struct {
	ID                   string        `json:"id"`
	Phase                Phase         `json:"phase"`
	Config               GameConfig    `json:"config"`
	CurrentRound         int           `json:"current_round"`
	TotalRounds          int           `json:"total_rounds"`
	Round                *RoundConfig  `json:"round,omitempty"`
	Teams                []Team        `json:"teams"`
	RoundResults         []RoundResult `json:"round_results,omitempty"`
	BiddingTimeRemaining int           `json:"bidding_time_remaining"`
	DemandForecastMW     []float64     `json:"demand_forecast_mw,omitempty"`
	DemandOverrideMW     []float64     `json:"demand_override_mw,omitempty"`
	Version              uint64        `json:"version"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// Team returns the team with the given id.
func (g *Game) Team(id string) (*Team, bool) {
	for i := range g.Teams {
		if g.Teams[i].ID == id {
			return &g.Teams[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy suitable for publishing as a snapshot.
func (g Game) Clone() Game {
	out := g
	if g.Round != nil {
		r := *g.Round
		r.Events = append([]string(nil), g.Round.Events...)
		r.Unlocked = append([]AssetType(nil), g.Round.Unlocked...)
		out.Round = &r
	}
	out.Config.Teams = append([]TeamConfig(nil), g.Config.Teams...)
	out.Teams = make([]Team, len(g.Teams))
	for i, t := range g.Teams {
		ct := t
		ct.Assets = make([]Asset, len(t.Assets))
		for j, a := range t.Assets {
			ct.Assets[j] = a.Clone()
		}
		ct.History = append([]TeamRoundResult(nil), t.History...)
		out.Teams[i] = ct
	}
	out.RoundResults = append([]RoundResult(nil), g.RoundResults...)
	out.DemandForecastMW = append([]float64(nil), g.DemandForecastMW...)
	out.DemandOverrideMW = append([]float64(nil), g.DemandOverrideMW...)
	return out
}

// LeaderboardEntry is one ranked line of the leaderboard.
type LeaderboardEntry struct {
	Rank                    int     `json:"rank"`
	TeamID                  string  `json:"team_id"`
	Name                    string  `json:"name"`
	Color                   string  `json:"color"`
	CumulativeProfitDollars float64 `json:"cumulative_profit_dollars"`
}

// Leaderboard is ordered by rank.
type Leaderboard []LeaderboardEntry

// RankTeams orders teams by cumulative profit descending, then name, and
// writes the resulting rank back onto each team.
func RankTeams(teams []Team) Leaderboard {
	idx := make([]int, len(teams))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := teams[idx[a]], teams[idx[b]]
		if ta.CumulativeProfitDollars != tb.CumulativeProfitDollars {
			return ta.CumulativeProfitDollars > tb.CumulativeProfitDollars
		}
		return ta.Name < tb.Name
	})
	lb := make(Leaderboard, len(idx))
	for pos, i := range idx {
		teams[i].Rank = pos + 1
		lb[pos] = LeaderboardEntry{
			Rank:                    pos + 1,
			TeamID:                  teams[i].ID,
			Name:                    teams[i].Name,
			Color:                   teams[i].Color,
			CumulativeProfitDollars: teams[i].CumulativeProfitDollars,
		}
	}
	return lb
}
