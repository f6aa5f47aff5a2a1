// Package infra holds the adapters that connect the market engine to the
// outside world: the MQTT broker, Prometheus, InfluxDB, Sentry and the
// zerolog logger. Adapters implement interfaces declared under core and
// are selected from configuration by the app package.
package infra
