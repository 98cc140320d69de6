package goAuthz

import (
	"context"
	"io"
	"log/slog"
	"strings"

	internalaudit "github.com/MrEthical07/goAuthz/internal/audit"
	internalmetrics "github.com/MrEthical07/goAuthz/internal/metrics"
	"github.com/MrEthical07/goAuthz/permission"
)

// RoleType names a privilege level registered in the role hierarchy.
type RoleType = permission.Role

const (
	RoleUser      = permission.RoleUser
	RoleModerator = permission.RoleModerator
	RoleDeveloper = permission.RoleDeveloper
	RoleAdmin     = permission.RoleAdmin
)

// HeaderNewToken is the response header that relays a reissued token.
const HeaderNewToken = "X-Auth-Token"

// Identity is the caller identity embedded in a token.
//
// Role is the role at issuance time and is informational only; authorization
// decisions always use the role currently held in the [IdentityStore].
type Identity struct {
	ID   int64
	Role RoleType
}

// ResolverKind names an ownership resolver. The zero value is unset and is
// rejected by [Engine.ValidateRequirement] and [Engine.Authorize].
type ResolverKind string

const (
	// ResolverNone always passes.
	ResolverNone ResolverKind = "none"
	// ResolverOwnAccount passes when the target id of the request equals the
	// caller's identity id.
	ResolverOwnAccount ResolverKind = "own_account"
)

// Requirement is the authorization declaration attached to a protected
// operation. An empty Roles slice admits any authenticated caller that holds
// a role record.
type Requirement struct {
	Roles    []RoleType
	Resolver ResolverKind
}

// DefaultRequirement returns {Roles: [USER], Resolver: none}, which applies
// when an operation declares no requirement.
func DefaultRequirement() Requirement {
	return Requirement{Roles: []RoleType{RoleUser}, Resolver: ResolverNone}
}

// Request is the transport-neutral view of an inbound call.
type Request struct {
	Method        string
	Path          string
	Authorization string
	Params        map[string]string
	Body          []byte
}

// Param returns the named path parameter.
func (r Request) Param(name string) (string, bool) {
	if r.Params == nil {
		return "", false
	}
	v, ok := r.Params[name]
	return v, ok
}

// ReadStyle reports whether the method carries its target in the path rather
// than the body.
func (r Request) ReadStyle() bool {
	switch strings.ToUpper(r.Method) {
	case "GET", "HEAD":
		return true
	default:
		return false
	}
}

func (r Request) operation() string {
	return r.Path + " [" + strings.ToUpper(r.Method) + "]"
}

// Decision is the outcome of [Engine.Authorize].
type Decision struct {
	Allowed  bool
	Identity Identity
	// Role is the role read from the identity store, when it was reached.
	Role RoleType
	// NewToken is set when an expired token was reissued inside the grace window.
	NewToken  string
	Refreshed bool
	// Bypassed reports that the caller's role skipped the ownership resolver.
	Bypassed bool
	Kind     ErrorKind
	Message  string
}

// Err returns nil for an allowed decision and a *DenyError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DenyError{Kind: d.Kind, Message: d.Message}
}

// IdentityStore is the authoritative source of identity existence and current
// role. Implementations must be safe for concurrent use.
type IdentityStore interface {
	Exists(ctx context.Context, id int64) (bool, error)
	CurrentRole(ctx context.Context, id int64) (RoleType, bool, error)
}

// ResolverFunc decides whether identity may act on the resource addressed by req.
// A returned error is treated as an unclassified fault.
type ResolverFunc func(ctx context.Context, identity Identity, req Request) (bool, error)

// AuditEvent is one authorization decision record.
type AuditEvent = internalaudit.Event

// AuditSink receives emitted audit events.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink writes audit events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink writes audit events to a structured logger.
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a channel-backed audit sink.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a JSON-lines audit sink.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates an audit sink backed by logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// MetricID identifies an engine metric.
type MetricID = internalmetrics.MetricID

const (
	// MetricAuthorizeAllowed counts allowed decisions.
	MetricAuthorizeAllowed = MetricID(internalmetrics.MetricAuthorizeAllowed)
	// MetricAuthorizeDenied counts denied decisions of any kind.
	MetricAuthorizeDenied = MetricID(internalmetrics.MetricAuthorizeDenied)
	// MetricDenyUnauthorized counts KindUnauthorized denials.
	MetricDenyUnauthorized = MetricID(internalmetrics.MetricDenyUnauthorized)
	// MetricDenyNotAcceptable counts KindNotAcceptable denials.
	MetricDenyNotAcceptable = MetricID(internalmetrics.MetricDenyNotAcceptable)
	// MetricDenyForbidden counts KindForbidden denials.
	MetricDenyForbidden = MetricID(internalmetrics.MetricDenyForbidden)
	// MetricTokenMissing counts requests without an Authorization header.
	MetricTokenMissing = MetricID(internalmetrics.MetricTokenMissing)
	// MetricTokenInvalid counts shape, signature and claim failures.
	MetricTokenInvalid = MetricID(internalmetrics.MetricTokenInvalid)
	// MetricTokenRefreshed counts grace-window reissues.
	MetricTokenRefreshed = MetricID(internalmetrics.MetricTokenRefreshed)
	// MetricTokenExpiredBeyondGrace counts tokens too old to refresh.
	MetricTokenExpiredBeyondGrace = MetricID(internalmetrics.MetricTokenExpiredBeyondGrace)
	// MetricStaleIdentity counts valid tokens whose identity no longer exists.
	MetricStaleIdentity = MetricID(internalmetrics.MetricStaleIdentity)
	// MetricRoleMissing counts identities without a usable role record.
	MetricRoleMissing = MetricID(internalmetrics.MetricRoleMissing)
	// MetricResolverRejected counts ownership resolver rejections.
	MetricResolverRejected = MetricID(internalmetrics.MetricResolverRejected)
	// MetricPrivilegeBypass counts allows that skipped the ownership resolver.
	MetricPrivilegeBypass = MetricID(internalmetrics.MetricPrivilegeBypass)
	// MetricAuthorizeFault counts unclassified faults.
	MetricAuthorizeFault = MetricID(internalmetrics.MetricAuthorizeFault)
	// MetricAuthorizeLatency is the Authorize latency histogram.
	MetricAuthorizeLatency = MetricID(internalmetrics.MetricAuthorizeLatency)

	metricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds engine counters and histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of engine metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a metrics set from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
