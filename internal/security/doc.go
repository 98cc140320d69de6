// Package security builds the static policy report exposed by
// Engine.SecurityReport: signing setup, grace window, role table and
// registered resolvers.
//
// # What this package must NOT do
//
//   - Perform I/O or read secrets; only configuration shape is reported.
package security
