// Package otel publishes goAuthz metrics through an OpenTelemetry Meter.
//
// [NewOTelExporter] registers one observable counter per metric family.
// Denial kinds and token rejection reasons are recorded as attributes, and
// latency buckets are one gauge keyed by an "le" attribute. A single callback
// reads [goAuthz.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
