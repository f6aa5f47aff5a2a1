// Package metrics defines interfaces for recording market observations.
//
// Every sink implements MetricsSink and receives settled rounds. Sinks may
// opt into finer grained events (period clearings, withholding flags, bid
// outcomes, phase changes, leaderboards) by implementing the matching
// recorder interface; callers detect support with a type assertion. Sinks
// are built from configuration through the factory registry and combined
// with NewMultiSink when several are configured.
package metrics
