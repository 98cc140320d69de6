package internaldefs

import (
	goAuthz "github.com/MrEthical07/goAuthz"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goAuthz.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goAuthz.MetricID
	Name string
	Help string
}

// LabeledSeries is one labelled member of a counter family.
type LabeledSeries struct {
	Value string
	ID    goAuthz.MetricID
}

// LabeledCounterDef is a counter family split by a single label.
type LabeledCounterDef struct {
	Name   string
	Help   string
	Label  string
	Series []LabeledSeries
}

// CounterDefs lists every unlabelled counter in render order.
var CounterDefs = []CounterDef{
	{ID: goAuthz.MetricAuthorizeAllowed, Name: "goauthz_authorize_allowed_total", Help: "Allowed authorization decisions."},
	{ID: goAuthz.MetricAuthorizeDenied, Name: "goauthz_authorize_denied_total", Help: "Denied authorization decisions."},
	{ID: goAuthz.MetricTokenRefreshed, Name: "goauthz_token_refreshed_total", Help: "Expired tokens reissued inside the grace window."},
	{ID: goAuthz.MetricStaleIdentity, Name: "goauthz_stale_identity_total", Help: "Valid tokens for identities that no longer exist."},
	{ID: goAuthz.MetricRoleMissing, Name: "goauthz_role_missing_total", Help: "Identities without a usable role record."},
	{ID: goAuthz.MetricResolverRejected, Name: "goauthz_resolver_rejected_total", Help: "Requests refused by an ownership resolver."},
	{ID: goAuthz.MetricPrivilegeBypass, Name: "goauthz_privilege_bypass_total", Help: "Allowed requests that skipped the ownership resolver."},
	{ID: goAuthz.MetricAuthorizeFault, Name: "goauthz_authorize_fault_total", Help: "Unclassified faults during authorization."},
}

// LabeledCounterDefs lists the labelled counter families in render order.
// Label values match ErrorKind.String for denial kinds.
var LabeledCounterDefs = []LabeledCounterDef{
	{
		Name:  "goauthz_denied_total",
		Help:  "Denied authorization decisions by kind.",
		Label: "kind",
		Series: []LabeledSeries{
			{Value: goAuthz.KindUnauthorized.String(), ID: goAuthz.MetricDenyUnauthorized},
			{Value: goAuthz.KindNotAcceptable.String(), ID: goAuthz.MetricDenyNotAcceptable},
			{Value: goAuthz.KindForbidden.String(), ID: goAuthz.MetricDenyForbidden},
		},
	},
	{
		Name:  "goauthz_token_rejected_total",
		Help:  "Tokens rejected before identity lookup, by reason.",
		Label: "reason",
		Series: []LabeledSeries{
			{Value: "missing", ID: goAuthz.MetricTokenMissing},
			{Value: "invalid", ID: goAuthz.MetricTokenInvalid},
			{Value: "expired", ID: goAuthz.MetricTokenExpiredBeyondGrace},
		},
	},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAuthz.MetricAuthorizeLatency, Name: "goauthz_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine latency
// buckets. Both exporters use them as the "le" label value.
var HistogramBounds = []string{
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// BucketCount is the number of engine latency buckets.
const BucketCount = 8

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
