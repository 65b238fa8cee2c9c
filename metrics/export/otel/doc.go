// Package otel exposes dashauth engine metrics through an OpenTelemetry
// Meter supplied by the caller. Each counter family is one observable
// counter whose series carry outcome, stage or status attributes; login
// latency is published as bucket, count and sum gauges keyed by le.
package otel
