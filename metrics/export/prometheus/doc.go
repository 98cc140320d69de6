// Package prometheus renders goAuthz metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts a [goAuthz.Engine] and exposes an
// [http.Handler]. Denials are one family, goauthz_denied_total{kind=...},
// and pre-lookup token rejections are goauthz_token_rejected_total{reason=...}.
// The latency histogram is goauthz_authorize_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
