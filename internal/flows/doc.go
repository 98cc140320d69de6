// Package flows contains pure-function orchestrators for the Engine's
// authorization pipeline.
//
// [RunVerify] drives the bearer-token state machine (header shape, codec
// verification, grace-window refresh). [RunAuthorize] runs the identity,
// role and ownership phase. Both accept a typed dependency struct and hold no
// state between calls, so they are exercised directly with fake dependencies.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token codec, identity store and role
// hierarchy. They do NOT own any of these resources; ownership stays with the
// Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAuthz (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency funcs.
package flows
