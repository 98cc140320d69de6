package flows

import (
	"context"

	"github.com/MrEthical07/goAuthz/permission"
)

// AuthorizeOutcome classifies the identity and role phase of a request.
type AuthorizeOutcome int

const (
	AuthorizeAllowed AuthorizeOutcome = iota
	// AuthorizeUserGone: the identity no longer exists in the store.
	AuthorizeUserGone
	// AuthorizeRoleMissing: no role record, or a role the hierarchy does not know.
	AuthorizeRoleMissing
	// AuthorizeOwnershipRejected: the ownership resolver refused the request.
	AuthorizeOwnershipRejected
	// AuthorizeRoleTooLow: no required role is satisfied.
	AuthorizeRoleTooLow
)

// AuthorizeResult is the outcome of RunAuthorize. Err is set only for
// unclassified faults.
type AuthorizeResult struct {
	Outcome  AuthorizeOutcome
	Role     permission.Role
	Bypassed bool
	Err      error
}

// AuthorizeDeps captures the identity store, hierarchy and resolver used by
// RunAuthorize.
type AuthorizeDeps struct {
	Exists      func(ctx context.Context, id int64) (bool, error)
	CurrentRole func(ctx context.Context, id int64) (permission.Role, bool, error)
	Hierarchy   *permission.Hierarchy
	// Resolve runs the requirement's ownership resolver with the caller's
	// current role. It is only called below the bypass threshold.
	Resolve func(role permission.Role) (bool, error)
}

// RunAuthorize decides whether identity id may perform an operation that
// requires one of roles. The current role is always re-read from the store.
func RunAuthorize(ctx context.Context, id int64, roles []permission.Role, deps AuthorizeDeps) AuthorizeResult {
	exists, err := deps.Exists(ctx, id)
	if err != nil {
		return AuthorizeResult{Err: err}
	}
	if !exists {
		return AuthorizeResult{Outcome: AuthorizeUserGone}
	}

	role, ok, err := deps.CurrentRole(ctx, id)
	if err != nil {
		return AuthorizeResult{Err: err}
	}
	if !ok || !deps.Hierarchy.Known(role) {
		return AuthorizeResult{Outcome: AuthorizeRoleMissing, Role: role}
	}

	if len(roles) == 0 {
		return AuthorizeResult{Outcome: AuthorizeAllowed, Role: role}
	}

	roleMatches := false
	for _, required := range roles {
		if deps.Hierarchy.AtLeast(role, required) {
			roleMatches = true
			break
		}
	}

	bypassed := deps.Hierarchy.Bypasses(role)
	resolverPasses := bypassed
	if !resolverPasses {
		resolverPasses, err = deps.Resolve(role)
		if err != nil {
			return AuthorizeResult{Role: role, Err: err}
		}
	}

	switch {
	case roleMatches && resolverPasses:
		return AuthorizeResult{Outcome: AuthorizeAllowed, Role: role, Bypassed: bypassed}
	case !resolverPasses:
		return AuthorizeResult{Outcome: AuthorizeOwnershipRejected, Role: role}
	default:
		return AuthorizeResult{Outcome: AuthorizeRoleTooLow, Role: role}
	}
}
