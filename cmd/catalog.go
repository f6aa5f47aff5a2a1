package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridmarket/core/catalog"
	"github.com/kilianp07/gridmarket/core/model"
)

var presetPath string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect game modes and asset archetypes",
}

var catalogModesCmd = &cobra.Command{
	Use:   "modes [mode]",
	Short: "List game modes, or the rounds of one mode",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalogModes,
}

var catalogAssetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "List asset archetypes with an optional preset applied",
	RunE:  runCatalogAssets,
}

func init() {
	catalogAssetsCmd.Flags().StringVar(&presetPath, "preset", "", "asset preset file (yaml or json)")
	catalogCmd.AddCommand(catalogModesCmd, catalogAssetsCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogModes(cmd *cobra.Command, args []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if len(args) == 0 {
		fmt.Fprintln(tw, "MODE\tROUNDS")
		for _, m := range catalog.Modes() {
			n, err := catalog.RoundCount(m)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%d\n", m, n)
		}
		return tw.Flush()
	}
	rounds, err := catalog.Rounds(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "#\tNAME\tSEASON\tBIDDING\tUNLOCKED\tEVENTS")
	for _, r := range rounds {
		unlocked := make([]string, len(r.Unlocked))
		for i, t := range r.Unlocked {
			unlocked[i] = string(t)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%ds\t%s\t%s\n", r.Index+1, r.Name, r.Season, r.BiddingSeconds,
			strings.Join(unlocked, ","), strings.Join(r.Events, ","))
	}
	return tw.Flush()
}

func runCatalogAssets(cmd *cobra.Command, args []string) error {
	var preset *model.AssetConfigPreset
	if presetPath != "" {
		p, err := catalog.LoadPreset(presetPath)
		if err != nil {
			return err
		}
		preset = &p
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tCAPACITY MW\tSRMC $/MWh\tSTARTUP $")
	for _, t := range model.AllAssetTypes {
		s := catalog.Spec(t, preset)
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.2f\t%.0f\n", t, s.Name, s.CapacityMW, s.SRMC, s.StartupCost)
	}
	return tw.Flush()
}
