package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/gridmarket/core/model"
)

var (
	clearingLatency prometheus.Histogram
	periodsCleared  *prometheus.CounterVec
	dispatchedMW    *prometheus.CounterVec
	clearingPrice   prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Histogram, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Gauge) {
	lat := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "market_clearing_duration_seconds",
			Help:    "Time spent clearing one period",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)
	periods := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_periods_cleared_total",
			Help: "Number of cleared periods by market condition",
		},
		[]string{"condition"},
	)
	mw := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_dispatched_mw_total",
			Help: "Dispatched megawatts by asset type",
		},
		[]string{"asset_type"},
	)
	price := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "market_last_clearing_price_mwh",
			Help: "Clearing price of the most recently cleared period",
		},
	)
	return lat, periods, mw, price
}

func init() {
	clearingLatency, periodsCleared, dispatchedMW, clearingPrice = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers clearing metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(clearingLatency, periodsCleared, dispatchedMW, clearingPrice)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	clearingLatency, periodsCleared, dispatchedMW, clearingPrice = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

// Condition labels a cleared period.
func Condition(r model.DispatchResult) string {
	switch {
	case r.Scarcity:
		return "scarcity"
	case r.Oversupply:
		return "oversupply"
	default:
		return "normal"
	}
}

func observeClearing(r model.DispatchResult, d time.Duration) {
	clearingLatency.Observe(d.Seconds())
	periodsCleared.WithLabelValues(Condition(r)).Inc()
	clearingPrice.Set(r.ClearingPriceMWh)
	for _, b := range r.Bands {
		if b.DispatchedMW > 0 {
			dispatchedMW.WithLabelValues(string(b.AssetType)).Add(b.DispatchedMW)
		}
	}
}
