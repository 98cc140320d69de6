// Package goAuthz provides a request-authorization engine for HTTP APIs: bearer-token
// verification with grace-window refresh, a weighted role hierarchy, and per-route
// ownership resolvers.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Decision pipeline
//
// [Engine.Authorize] runs, in order: Authorization header shape check, token verification
// (with transparent reissue of tokens expired within the grace window), identity existence
// and current-role lookup through [IdentityStore], role comparison against the
// [Requirement], and the requirement's ownership resolver. Roles at or above the bypass
// threshold skip the resolver.
//
// # Architecture boundaries
//
// goAuthz is the public surface. It exposes [Engine], [Builder], [Config], and value types
// ([Decision], [Identity], MetricsSnapshot). Flow orchestration, metrics storage and audit
// dispatch live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Issue tokens for login flows or hash passwords.
//   - Trust the role embedded in a token; the store is always re-queried.
//   - Cache identities or roles across requests.
//   - Import any sub-package that re-imports goAuthz (no import cycles).
package goAuthz
