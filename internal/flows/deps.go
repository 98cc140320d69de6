package flows

import "github.com/MrEthical07/goAuthz/permission"

// Deps groups flow dependency sets. The root engine builds this once at Build
// and reuses it for every request.
type Deps struct {
	Verify    VerifyDeps
	Authorize AuthorizeDeps
}

// WithResolve returns a copy of d that runs resolve as the ownership check.
// The per-request resolver is the only dependency not fixed at Build.
func (d AuthorizeDeps) WithResolve(resolve func(role permission.Role) (bool, error)) AuthorizeDeps {
	d.Resolve = resolve
	return d
}
