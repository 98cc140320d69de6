package goAuthz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	internalaudit "github.com/MrEthical07/goAuthz/internal/audit"
	"github.com/MrEthical07/goAuthz/internal/flows"
	"github.com/MrEthical07/goAuthz/jwt"
	"github.com/MrEthical07/goAuthz/permission"
)

const (
	msgAuthorizationRequired = "authorization required"
	msgInvalidToken          = "invalid token"
	msgInvalidTokenData      = "invalid token data"
	msgTokenExpired          = "token expired"
	msgUserGone              = "user no longer exists"
	msgRoleMissing           = "role record missing"
	msgNotOwner              = "not authorized to modify this resource"
	msgRoleTooLow            = "role lacks permission for this operation"
)

// Engine evaluates authorization requirements against inbound requests.
//
// Engine is immutable after [Builder.Build] and safe for concurrent use.
type Engine struct {
	config             Config
	hierarchy          *permission.Hierarchy
	resolvers          *resolverRegistry
	store              IdentityStore
	jwtManager         *jwt.Manager
	flows              flows.Deps
	audit              *internalaudit.Dispatcher
	metrics            *Metrics
	logger             *slog.Logger
	now                func() time.Time
	defaultRequirement Requirement
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Hierarchy returns the frozen role hierarchy.
func (e *Engine) Hierarchy() *permission.Hierarchy {
	if e == nil {
		return nil
	}
	return e.hierarchy
}

// RefreshHeader returns the response header that carries reissued tokens.
func (e *Engine) RefreshHeader() string {
	if e == nil || e.config.Refresh.Header == "" {
		return HeaderNewToken
	}
	return e.config.Refresh.Header
}

// MaxBodyBytes returns the body size transport adapters buffer for resolvers.
func (e *Engine) MaxBodyBytes() int64 {
	if e == nil {
		return 0
	}
	return e.config.Request.MaxBodyBytes
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	if e == nil || e.logger == nil {
		return discardLogger()
	}
	return e.logger
}

// IssueToken signs a token for identity with the engine's codec. It exists
// for tooling and tests.
func (e *Engine) IssueToken(identity Identity) (string, error) {
	if e == nil || e.jwtManager == nil {
		return "", ErrEngineNotReady
	}
	return e.jwtManager.Issue(jwt.User{ID: identity.ID, Role: string(identity.Role)})
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// ValidateRequirement checks that every role in r is registered and that its
// resolver kind is known. Transport adapters call it when routes are declared
// so misconfiguration fails at startup.
func (e *Engine) ValidateRequirement(r Requirement) error {
	if e == nil {
		return ErrEngineNotReady
	}
	for _, role := range r.Roles {
		if !e.hierarchy.Known(role) {
			return fmt.Errorf("%w: %q", ErrUnknownRole, role)
		}
	}
	if _, err := e.resolvers.lookup(r.Resolver); err != nil {
		return err
	}
	return nil
}

// ResolverKinds returns the registered resolver kinds, sorted.
func (e *Engine) ResolverKinds() []ResolverKind {
	if e == nil {
		return nil
	}
	kinds := e.resolvers.kinds()
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Authorize decides whether the caller of req may perform the operation
// protected by requirement. A nil requirement applies the default
// requirement (the configured default role, no resolver).
//
// Denials are returned as a Decision with Allowed false and a nil error.
// A non-nil error is an unclassified fault (identity store failure, unknown
// resolver, codec failure) and must not be treated as a denial.
func (e *Engine) Authorize(ctx context.Context, req Request, requirement *Requirement) (Decision, error) {
	if e == nil || e.jwtManager == nil || e.store == nil {
		return Decision{}, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
		}
	}()

	reqmt := e.defaultRequirement
	if requirement != nil {
		reqmt = *requirement
	}
	if err := e.ValidateRequirement(reqmt); err != nil {
		return e.fault(ctx, req, Identity{}, err)
	}

	vr := flows.RunVerify(req.Authorization, e.flows.Verify)
	if vr.Err != nil {
		return e.fault(ctx, req, Identity{}, vr.Err)
	}
	if vr.State == flows.VerifyStateRejected {
		return e.rejectToken(ctx, req, vr), nil
	}

	identity := Identity{ID: vr.User.ID, Role: RoleType(vr.User.Role)}
	decision := Decision{Identity: identity}
	if vr.State == flows.VerifyStateRefreshed {
		decision.NewToken = vr.NewToken
		decision.Refreshed = true
		e.metricInc(MetricTokenRefreshed)
		e.logger.InfoContext(ctx, "refreshing token",
			slog.Int64("user_id", identity.ID),
			slog.Int64("days_until_expiry", vr.DaysUntilExpiry),
		)
		e.emitAudit(ctx, auditEventTokenRefreshed, true, req, identity, "", nil)
	}

	resolve, err := e.resolvers.lookup(reqmt.Resolver)
	if err != nil {
		return e.fault(ctx, req, identity, err)
	}

	ar := flows.RunAuthorize(ctx, identity.ID, reqmt.Roles, e.flows.Authorize.WithResolve(func(role permission.Role) (bool, error) {
		return resolve(ctx, Identity{ID: identity.ID, Role: role}, req)
	}))
	if ar.Err != nil {
		return e.fault(ctx, req, identity, ar.Err)
	}
	decision.Role = ar.Role

	switch ar.Outcome {
	case flows.AuthorizeAllowed:
		decision.Allowed = true
		decision.Bypassed = ar.Bypassed && reqmt.Resolver != ResolverNone
		e.metricInc(MetricAuthorizeAllowed)
		if decision.Bypassed {
			e.metricInc(MetricPrivilegeBypass)
		}
		e.emitAudit(ctx, auditEventAuthorizeAllowed, true, req, identity, ar.Role, nil)
		return decision, nil
	case flows.AuthorizeUserGone:
		e.metricInc(MetricStaleIdentity)
		return e.deny(ctx, req, decision, KindForbidden, msgUserGone), nil
	case flows.AuthorizeRoleMissing:
		e.metricInc(MetricRoleMissing)
		return e.deny(ctx, req, decision, KindForbidden, msgRoleMissing), nil
	case flows.AuthorizeOwnershipRejected:
		e.metricInc(MetricResolverRejected)
		return e.deny(ctx, req, decision, KindUnauthorized, msgNotOwner), nil
	default:
		return e.deny(ctx, req, decision, KindForbidden, msgRoleTooLow), nil
	}
}

// IdentityFromHeader verifies an Authorization header value and confirms the
// identity still exists. The current role is filled in when a role record is
// present. No role or resolver checks are applied.
func (e *Engine) IdentityFromHeader(ctx context.Context, header string) (Decision, error) {
	if e == nil || e.jwtManager == nil || e.store == nil {
		return Decision{}, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req := Request{Authorization: header}

	vr := flows.RunVerify(header, e.flows.Verify)
	if vr.Err != nil {
		return Decision{}, vr.Err
	}
	if vr.State == flows.VerifyStateRejected {
		return e.rejectToken(ctx, req, vr), nil
	}

	identity := Identity{ID: vr.User.ID, Role: RoleType(vr.User.Role)}
	decision := Decision{Identity: identity}
	if vr.State == flows.VerifyStateRefreshed {
		decision.NewToken = vr.NewToken
		decision.Refreshed = true
		e.metricInc(MetricTokenRefreshed)
	}

	exists, err := e.store.Exists(ctx, identity.ID)
	if err != nil {
		return Decision{}, err
	}
	if !exists {
		e.metricInc(MetricStaleIdentity)
		return e.deny(ctx, req, decision, KindForbidden, msgUserGone), nil
	}
	role, ok, err := e.store.CurrentRole(ctx, identity.ID)
	if err != nil {
		return Decision{}, err
	}
	if ok {
		decision.Role = role
	}
	decision.Allowed = true
	return decision, nil
}

func (e *Engine) rejectToken(ctx context.Context, req Request, vr flows.VerifyResult) Decision {
	var (
		kind ErrorKind
		msg  string
	)
	switch vr.Failure {
	case flows.VerifyFailureMissing:
		e.metricInc(MetricTokenMissing)
		kind, msg = KindUnauthorized, msgAuthorizationRequired
	case flows.VerifyFailureNoUser:
		e.metricInc(MetricTokenInvalid)
		kind, msg = KindNotAcceptable, msgInvalidTokenData
	case flows.VerifyFailureExpired:
		e.metricInc(MetricTokenExpiredBeyondGrace)
		kind, msg = KindForbidden, msgTokenExpired
	default:
		e.metricInc(MetricTokenInvalid)
		kind, msg = KindNotAcceptable, msgInvalidToken
	}
	return e.deny(ctx, req, Decision{}, kind, msg)
}

func (e *Engine) deny(ctx context.Context, req Request, d Decision, kind ErrorKind, msg string) Decision {
	d.Allowed = false
	d.Kind = kind
	d.Message = denyMessage(msg, req, d.Role)

	e.metricInc(MetricAuthorizeDenied)
	switch kind {
	case KindUnauthorized:
		e.metricInc(MetricDenyUnauthorized)
	case KindNotAcceptable:
		e.metricInc(MetricDenyNotAcceptable)
	case KindForbidden:
		e.metricInc(MetricDenyForbidden)
	}

	e.logger.DebugContext(ctx, "authorization denied",
		slog.String("kind", kind.String()),
		slog.String("reason", msg),
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int64("user_id", d.Identity.ID),
	)
	e.emitAudit(ctx, auditEventAuthorizeDenied, false, req, d.Identity, d.Role, d.Err())
	return d
}

func (e *Engine) fault(ctx context.Context, req Request, identity Identity, err error) (Decision, error) {
	e.metricInc(MetricAuthorizeFault)
	e.logger.ErrorContext(ctx, "authorization fault",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
		slog.Int64("user_id", identity.ID),
		slog.String("error", err.Error()),
	)
	e.emitAudit(ctx, auditEventAuthorizeFault, false, req, identity, "", err)
	if errors.Is(err, ErrUnknownResolver) || errors.Is(err, ErrUnknownRole) {
		return Decision{}, err
	}
	return Decision{}, fmt.Errorf("authorize %s: %w", req.operation(), err)
}

// denyMessage formats msg with the operation and, when known, the caller's
// current role.
func denyMessage(msg string, req Request, role RoleType) string {
	out := msg
	if req.Path != "" || req.Method != "" {
		out += ": " + req.operation()
	}
	if role != "" {
		out += " (role " + string(role) + ")"
	}
	return out
}
