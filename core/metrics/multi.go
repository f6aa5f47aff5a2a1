package metrics

import (
	"errors"
	"io"
)

// MultiSink fans events out to multiple sinks. Every sink is called even when
// an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordRoundResult(ev RoundResultEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRoundResult(ev))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordPeriodClearing(ev PeriodClearingEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(PeriodClearingRecorder); ok {
			errs = append(errs, rec.RecordPeriodClearing(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordWithholding(ev WithholdingEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(WithholdingRecorder); ok {
			errs = append(errs, rec.RecordWithholding(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordBid(ev BidEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(BidRecorder); ok {
			errs = append(errs, rec.RecordBid(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordPhase(ev PhaseEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(PhaseRecorder); ok {
			errs = append(errs, rec.RecordPhase(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordLeaderboard(ev LeaderboardEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(LeaderboardRecorder); ok {
			errs = append(errs, rec.RecordLeaderboard(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) ForgetGame(gameID string) error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(GameForgetter); ok {
			errs = append(errs, f.ForgetGame(gameID))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
