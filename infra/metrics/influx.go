package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/gridmarket/core/metrics"
	"github.com/kilianp07/gridmarket/infra/logger"
)

// InfluxSink writes market observations to an InfluxDB instance.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// RecordRoundResult writes one team_round point per team.
func (s *InfluxSink) RecordRoundResult(ev coremetrics.RoundResultEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(ev.Result.Teams))
	for _, t := range ev.Result.Teams {
		p := write.NewPointWithMeasurement("team_round").
			AddTag("game_id", ev.GameID).
			AddTag("mode", ev.Mode).
			AddTag("team_id", t.TeamID).
			AddTag("season", string(ev.Result.Season)).
			AddField("round", t.Round).
			AddField("revenue", round3(t.RevenueDollars)).
			AddField("cost", round3(t.CostDollars)).
			AddField("startup_cost", round3(t.StartupCostDollars)).
			AddField("profit", round3(t.ProfitDollars)).
			AddField("balancing_penalty", round3(t.BalancingPenaltyDollars)).
			AddField("net_profit", round3(t.NetProfitDollars)).
			AddField("reserve_margin", round3(t.ReserveMargin)).
			SetTime(ev.Time)
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordPeriodClearing writes the clearing outcome of one period.
func (s *InfluxSink) RecordPeriodClearing(ev coremetrics.PeriodClearingEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r := ev.Result
	p := write.NewPointWithMeasurement("period_clearing").
		AddTag("game_id", ev.GameID).
		AddTag("season", string(ev.Season)).
		AddTag("period", strconv.Itoa(r.Period)).
		AddTag("scarcity", strconv.FormatBool(r.Scarcity)).
		AddTag("oversupply", strconv.FormatBool(r.Oversupply)).
		AddField("round", ev.Round).
		AddField("demand_mw", round3(r.DemandMW)).
		AddField("charging_mw", round3(r.ChargingMW)).
		AddField("offered_mw", round3(r.TotalOfferedMW)).
		AddField("available_mw", round3(r.TotalAvailableMW)).
		AddField("dispatched_mw", round3(r.DispatchedMW())).
		AddField("clearing_price", round3(r.ClearingPriceMWh)).
		AddField("effective_price", round3(r.EffectivePriceMWh)).
		AddField("reserve_margin", round3(r.ReserveMargin)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordWithholding writes a withholding flag.
func (s *InfluxSink) RecordWithholding(ev coremetrics.WithholdingEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("withholding_flag").
		AddTag("game_id", ev.GameID).
		AddTag("team_id", ev.Flag.TeamID).
		AddTag("period", strconv.Itoa(ev.Flag.Period)).
		AddField("round", ev.Round).
		AddField("withheld_mw", round3(ev.Flag.WithheldMW)).
		AddField("available_mw", round3(ev.Flag.AvailableMW)).
		AddField("share", round3(ev.Flag.Share)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBid writes the outcome of a submission.
func (s *InfluxSink) RecordBid(ev coremetrics.BidEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("bid_submission").
		AddTag("game_id", ev.GameID).
		AddTag("team_id", ev.TeamID).
		AddTag("accepted", strconv.FormatBool(ev.Accepted)).
		AddField("slots", ev.Slots)
	if ev.Reason != "" {
		p = p.AddField("reason", ev.Reason)
	}
	return s.writeAPI.WritePoint(ctx, p.SetTime(ev.Time))
}

// RecordPhase writes a lifecycle transition.
func (s *InfluxSink) RecordPhase(ev coremetrics.PhaseEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("phase_change").
		AddTag("game_id", ev.GameID).
		AddTag("from", string(ev.From)).
		AddTag("to", string(ev.To)).
		AddField("round", ev.Round).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordLeaderboard writes the final position of every team.
func (s *InfluxSink) RecordLeaderboard(ev coremetrics.LeaderboardEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, e := range ev.Leaderboard {
		p := write.NewPointWithMeasurement("leaderboard").
			AddTag("game_id", ev.GameID).
			AddTag("team_id", e.TeamID).
			AddField("rank", e.Rank).
			AddField("cumulative_profit", round3(e.CumulativeProfitDollars)).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
