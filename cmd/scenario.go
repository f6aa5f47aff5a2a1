package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridmarket/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario FILE...",
	Short: "Play scripted bot games and check their expectations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SCENARIO\tRESULT\tWINNER\tBIDS\tFLAGS")
		failed := 0
		var details []string
		for _, path := range args {
			sc, err := scenarios.Load(path)
			if err != nil {
				return err
			}
			rep, err := scenarios.Run(sc)
			if err != nil {
				return fmt.Errorf("%s: %w", sc.Name, err)
			}
			result := "PASS"
			if fails := scenarios.Check(sc, rep); len(fails) > 0 {
				result = "FAIL"
				failed++
				for _, f := range fails {
					details = append(details, sc.Name+": "+f)
				}
			}
			winner := ""
			if len(rep.Leaderboard) > 0 {
				winner = rep.Leaderboard[0].TeamID
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", sc.Name, result, winner, rep.AcceptedBids, rep.Withholding)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, d := range details {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}
