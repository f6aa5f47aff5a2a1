package metrics

import (
	"errors"
	"strconv"

	coremetrics "github.com/kilianp07/gridmarket/core/metrics"
	"github.com/kilianp07/gridmarket/core/model"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes per-game market observations as Prometheus metrics.
type PromSink struct {
	price       *prometheus.GaugeVec
	reserve     *prometheus.GaugeVec
	profit      *prometheus.GaugeVec
	withholding *prometheus.CounterVec
	bids        *prometheus.CounterVec
	round       *prometheus.GaugeVec
	rank        *prometheus.GaugeVec
}

// NewPromSink registers game metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "game_clearing_price_mwh",
			Help: "Clearing price of the last settled round per period",
		}, []string{"game_id", "period"}),
		reserve: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "game_reserve_margin_ratio",
			Help: "Reserve margin of the last settled round per period",
		}, []string{"game_id", "period"}),
		profit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "game_team_net_profit_dollars",
			Help: "Cumulative net profit per team",
		}, []string{"game_id", "team_id"}),
		withholding: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "game_withholding_flags_total",
			Help: "Withholding flags raised per team",
		}, []string{"game_id", "team_id"}),
		bids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "game_bid_submissions_total",
			Help: "Bid submissions per team and outcome",
		}, []string{"game_id", "team_id", "accepted"}),
		round: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "game_current_round",
			Help: "Round index the game is in",
		}, []string{"game_id"}),
		rank: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "game_team_final_rank",
			Help: "Final leaderboard position per team",
		}, []string{"game_id", "team_id"}),
	}
	var err error
	if s.price, err = register(reg, s.price); err != nil {
		return nil, err
	}
	if s.reserve, err = register(reg, s.reserve); err != nil {
		return nil, err
	}
	if s.profit, err = register(reg, s.profit); err != nil {
		return nil, err
	}
	if s.withholding, err = register(reg, s.withholding); err != nil {
		return nil, err
	}
	if s.bids, err = register(reg, s.bids); err != nil {
		return nil, err
	}
	if s.round, err = register(reg, s.round); err != nil {
		return nil, err
	}
	if s.rank, err = register(reg, s.rank); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRoundResult adds each team's net profit to its running total.
func (s *PromSink) RecordRoundResult(ev coremetrics.RoundResultEvent) error {
	for _, t := range ev.Result.Teams {
		s.profit.WithLabelValues(ev.GameID, t.TeamID).Add(t.NetProfitDollars)
	}
	return nil
}

func (s *PromSink) RecordPeriodClearing(ev coremetrics.PeriodClearingEvent) error {
	p := strconv.Itoa(ev.Result.Period)
	s.price.WithLabelValues(ev.GameID, p).Set(ev.Result.ClearingPriceMWh)
	s.reserve.WithLabelValues(ev.GameID, p).Set(ev.Result.ReserveMargin)
	return nil
}

func (s *PromSink) RecordWithholding(ev coremetrics.WithholdingEvent) error {
	s.withholding.WithLabelValues(ev.GameID, ev.Flag.TeamID).Inc()
	return nil
}

func (s *PromSink) RecordBid(ev coremetrics.BidEvent) error {
	s.bids.WithLabelValues(ev.GameID, ev.TeamID, strconv.FormatBool(ev.Accepted)).Inc()
	return nil
}

// RecordPhase tracks the current round. A return to the lobby also clears
// the game's profit totals.
func (s *PromSink) RecordPhase(ev coremetrics.PhaseEvent) error {
	s.round.WithLabelValues(ev.GameID).Set(float64(ev.Round))
	if ev.To == model.PhaseLobby && ev.From != "" {
		s.profit.DeletePartialMatch(prometheus.Labels{"game_id": ev.GameID})
	}
	return nil
}

func (s *PromSink) RecordLeaderboard(ev coremetrics.LeaderboardEvent) error {
	for _, e := range ev.Leaderboard {
		s.rank.WithLabelValues(ev.GameID, e.TeamID).Set(float64(e.Rank))
	}
	return nil
}

// ForgetGame removes every series labelled with gameID.
func (s *PromSink) ForgetGame(gameID string) error {
	l := prometheus.Labels{"game_id": gameID}
	s.price.DeletePartialMatch(l)
	s.reserve.DeletePartialMatch(l)
	s.profit.DeletePartialMatch(l)
	s.withholding.DeletePartialMatch(l)
	s.bids.DeletePartialMatch(l)
	s.round.DeletePartialMatch(l)
	s.rank.DeletePartialMatch(l)
	return nil
}
