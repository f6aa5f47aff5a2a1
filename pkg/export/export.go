package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	dispatchlog "github.com/kilianp07/gridmarket/core/dispatch/logging"
)

var teamHeader = []string{
	"game_id", "round", "season", "settled_at", "team_id",
	"revenue_dollars", "cost_dollars", "startup_cost_dollars", "profit_dollars",
	"balancing_penalty_dollars", "net_profit_dollars", "reserve_margin", "withholding_flags",
}

// WriteJSON writes the settled rounds to w in JSON format.
func WriteJSON(w io.Writer, records []dispatchlog.LogRecord) error {
	enc := json.NewEncoder(w)
	return enc.Encode(records)
}

// WriteCSV writes one row per team and round.
func WriteCSV(w io.Writer, records []dispatchlog.LogRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(teamHeader); err != nil {
		return err
	}
	for _, r := range records {
		at := r.Result.SettledAt
		if at.IsZero() {
			at = r.Timestamp
		}
		for _, t := range r.Result.Teams {
			rec := []string{
				r.GameID,
				strconv.Itoa(r.Round),
				string(r.Season),
				at.UTC().Format(time.RFC3339),
				t.TeamID,
				money(t.RevenueDollars),
				money(t.CostDollars),
				money(t.StartupCostDollars),
				money(t.ProfitDollars),
				money(t.BalancingPenaltyDollars),
				money(t.NetProfitDollars),
				strconv.FormatFloat(t.ReserveMargin, 'f', -1, 64),
				strconv.Itoa(len(t.Withholding)),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
