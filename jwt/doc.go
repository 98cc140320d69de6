// Package jwt verifies, decodes and reissues the bearer tokens consumed by the
// authorization engine.
//
// Verification errors are classified into two sentinels:
//
//   - [ErrExpired]: authentic token past its expiry. Callers may attempt a
//     grace-window refresh via [Manager.Decode] and [Manager.Reissue].
//   - [ErrMalformed]: anything the parser rejects for structure, signature,
//     algorithm, key ID or registered claims.
//
// Any other error is returned unchanged so callers can treat it as a fault.
package jwt
