package lifecycle

import (
	"fmt"

	"github.com/kilianp07/gridmarket/core/model"
)

// Command types accepted by Execute.
const (
	CmdCreateGame   = "create_game"
	CmdStartRound   = "start_round"
	CmdStartBidding = "start_bidding"
	CmdSubmitBids   = "submit_bids"
	CmdEndBidding   = "end_bidding"
	CmdNextRound    = "next_round"
	CmdResetGame    = "reset_game"
	CmdAdjustTimer  = "adjust_timer"
	CmdSetDemand    = "set_demand"
)

// HostOnly reports whether a command type is reserved to the host.
func HostOnly(cmdType string) bool {
	return cmdType != CmdSubmitBids
}

// Command is one resolved request against a game. GameID is ignored by
// create_game and TeamID is only read by submit_bids.
type Command struct {
	Type     string               `json:"type"`
	GameID   string               `json:"game_id,omitempty"`
	TeamID   string               `json:"team_id,omitempty"`
	Config   *model.GameConfig    `json:"config,omitempty"`
	Bids     *model.BidSubmission `json:"bids,omitempty"`
	Seconds  int                  `json:"seconds,omitempty"`
	DemandMW []float64            `json:"demand_mw,omitempty"`
}

// Outcome is what Execute hands back to the caller.
type Outcome struct {
	Game    model.Game  `json:"game"`
	Receipt *BidReceipt `json:"receipt,omitempty"`
}

// Execute applies cmd to the manager.
//
//gocyclo:ignore
func (m *Manager) Execute(cmd Command) (Outcome, error) {
	var (
		g   model.Game
		err error
	)
	switch cmd.Type {
	case CmdCreateGame:
		if cmd.Config == nil {
			return Outcome{}, &model.ValidationError{Field: "config", Reason: "missing game config"}
		}
		g, err = m.CreateGame(*cmd.Config)
	case CmdStartRound:
		g, err = m.StartRound(cmd.GameID)
	case CmdStartBidding:
		g, err = m.StartBidding(cmd.GameID)
	case CmdSubmitBids:
		if cmd.Bids == nil {
			return Outcome{}, &model.ValidationError{Field: "bids", Reason: "missing submission"}
		}
		rc, err := m.SubmitBids(cmd.GameID, cmd.TeamID, *cmd.Bids)
		if err != nil {
			return Outcome{}, err
		}
		g, err = m.Game(cmd.GameID)
		return Outcome{Game: g, Receipt: &rc}, err
	case CmdEndBidding:
		g, err = m.EndBidding(cmd.GameID)
	case CmdNextRound:
		g, err = m.NextRound(cmd.GameID)
	case CmdResetGame:
		g, err = m.ResetGame(cmd.GameID)
	case CmdAdjustTimer:
		g, err = m.AdjustTimer(cmd.GameID, cmd.Seconds)
	case CmdSetDemand:
		g, err = m.SetDemand(cmd.GameID, cmd.DemandMW)
	default:
		return Outcome{}, &model.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown command %q", cmd.Type)}
	}
	return Outcome{Game: g}, err
}
