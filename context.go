package goAuthz

import "context"

type decisionContextKey struct{}

// WithDecision attaches an allowed decision to ctx. Transport adapters call it
// before invoking the protected handler.
func WithDecision(ctx context.Context, d Decision) context.Context {
	return context.WithValue(ctx, decisionContextKey{}, d)
}

// DecisionFromContext returns the decision attached by WithDecision.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	if ctx == nil {
		return Decision{}, false
	}
	d, ok := ctx.Value(decisionContextKey{}).(Decision)
	return d, ok
}

// IdentityFromContext returns the caller identity with its current role.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	d, ok := DecisionFromContext(ctx)
	if !ok || !d.Allowed {
		return Identity{}, false
	}
	id := d.Identity
	if d.Role != "" {
		id.Role = d.Role
	}
	return id, true
}
