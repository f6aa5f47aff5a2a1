package lifecycle

import "github.com/prometheus/client_golang/prometheus"

var (
	bidsTotal        *prometheus.CounterVec
	roundsCleared    prometheus.Counter
	phaseTransitions *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Counter, *prometheus.CounterVec) {
	bids := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_bids_total",
			Help: "Team bid submissions by outcome",
		},
		[]string{"outcome"},
	)
	rounds := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "market_rounds_cleared_total",
			Help: "Rounds cleared and settled",
		},
	)
	phases := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "market_phase_transitions_total",
			Help: "Lifecycle transitions by target phase",
		},
		[]string{"phase"},
	)
	return bids, rounds, phases
}

func init() {
	bidsTotal, roundsCleared, phaseTransitions = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers lifecycle metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(bidsTotal, roundsCleared, phaseTransitions)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	bidsTotal, roundsCleared, phaseTransitions = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
