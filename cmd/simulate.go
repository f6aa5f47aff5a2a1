package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridmarket/app/plugins"
	"github.com/kilianp07/gridmarket/core/balancing"
	"github.com/kilianp07/gridmarket/core/bots"
	"github.com/kilianp07/gridmarket/core/catalog"
	"github.com/kilianp07/gridmarket/core/factory"
	"github.com/kilianp07/gridmarket/core/lifecycle"
	"github.com/kilianp07/gridmarket/core/model"
)

var simOpts struct {
	mode       string
	teams      int
	seed       uint64
	strategies map[string]string
	json       bool
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play a whole game with bots and print the leaderboard",
	Long: `Play a whole game offline. Teams are named team1..teamN and bid with the
srmc strategy unless --strategy team1=markup assigns another one.`,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simOpts.mode, "mode", "", "game mode (defaults to the configured mode)")
	f.IntVar(&simOpts.teams, "teams", 4, "number of teams")
	f.Uint64Var(&simOpts.seed, "seed", 1, "random seed, 0 picks one from the clock")
	f.StringToStringVar(&simOpts.strategies, "strategy", nil, "team=strategy assignments ("+strings.Join(bots.Names(), ", ")+")")
	f.BoolVar(&simOpts.json, "json", false, "print the leaderboard as JSON")
	rootCmd.AddCommand(simulateCmd)
}

//gocyclo:ignore
func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	clearer, err := plugins.NewClearer(cfg.Clearer)
	if err != nil {
		return err
	}
	policy, err := balancing.New(cfg.Balancing)
	if err != nil {
		return err
	}
	var preset *model.AssetConfigPreset
	if cfg.Catalog.PresetPath != "" {
		p, err := catalog.LoadPreset(cfg.Catalog.PresetPath)
		if err != nil {
			return err
		}
		preset = &p
	}
	mode := simOpts.mode
	if mode == "" {
		mode = cfg.Game.DefaultMode
	}
	if simOpts.teams < 1 || simOpts.teams > lifecycle.MaxTeams {
		return fmt.Errorf("teams must be between 1 and %d", lifecycle.MaxTeams)
	}

	gc := model.GameConfig{Mode: mode, Seed: simOpts.seed, Preset: preset}
	for i := 1; i <= simOpts.teams; i++ {
		gc.Teams = append(gc.Teams, model.TeamConfig{ID: fmt.Sprintf("team%d", i)})
	}
	strategies := make(map[string]bots.Strategy, len(simOpts.strategies))
	for _, team := range sortedKeys(simOpts.strategies) {
		name := simOpts.strategies[team]
		s, err := bots.New(factory.ModuleConfig{Type: name})
		if err != nil {
			return fmt.Errorf("team %s: %w", team, err)
		}
		strategies[team] = s
	}

	m := lifecycle.NewManager(nil, clearer, policy, nil, nil)
	g, err := m.CreateGame(gc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	var rounds []model.RoundResult
	lb, err := bots.Play(m, g.ID, strategies, func(r model.RoundResult) { rounds = append(rounds, r) })
	if err != nil {
		return err
	}

	if simOpts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Mode        string              `json:"mode"`
			Seed        uint64              `json:"seed"`
			Rounds      []model.RoundResult `json:"rounds"`
			Leaderboard model.Leaderboard   `json:"leaderboard"`
		}{mode, gc.Seed, rounds, lb})
	}

	fmt.Fprintln(tw, "ROUND\tNAME\tSEASON\tAVG PRICE\tPEAK PRICE")
	for _, r := range rounds {
		var sum, peak float64
		for _, p := range r.Periods {
			sum += p.ClearingPriceMWh
			if p.ClearingPriceMWh > peak {
				peak = p.ClearingPriceMWh
			}
		}
		avg := 0.0
		if len(r.Periods) > 0 {
			avg = sum / float64(len(r.Periods))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\n", r.Round+1, r.Name, r.Season, avg, peak)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "RANK\tTEAM\tSTRATEGY\tPROFIT")
	for _, e := range lb {
		name := "srmc"
		if s, ok := strategies[e.TeamID]; ok {
			name = s.Name()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f\n", e.Rank, e.TeamID, name, e.CumulativeProfitDollars)
	}
	return tw.Flush()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
