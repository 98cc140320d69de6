// Package middleware exposes net/http middleware that enforces goAuthz
// requirements on protected routes.
//
// # Guards
//
//   - [Require] and [MustRequire] enforce an explicit [goAuthz.Requirement].
//   - [Guard] enforces the engine's default requirement.
//   - [Authenticate] only verifies the caller and confirms the identity exists.
//
// Each guard builds a [goAuthz.Request] from the Authorization header, method,
// path parameters and a bounded copy of the body, calls the Engine and
// attaches the resulting decision to the request context. A reissued token is
// relayed in the engine's refresh header.
//
// # Status mapping
//
//	KindUnauthorized  -> 401
//	KindNotAcceptable -> 406
//	KindForbidden     -> 403
//	fault             -> 500
//
// # Path parameters
//
// Use [WithParams] with [ChiParams] for chi routers or [PathValueParams] for
// http.ServeMux patterns. With chi the guard must be mounted per route
// (r.With(...)) so URL parameters are already resolved.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Make authorization decisions beyond mapping Engine decisions to HTTP.
package middleware
