// Package identity provides IdentityStore implementations for goAuthz: an
// in-memory map, a Redis hash store and a PostgreSQL store.
//
// Every implementation answers two questions per call and caches nothing:
// does the identity still exist, and which role does it hold right now.
//
// # What this package must NOT do
//
//   - Import goAuthz (the root package depends on nothing here).
//   - Cache existence or roles between calls.
//   - Decide authorization; it only reports stored facts.
package identity
