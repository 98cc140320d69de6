// Package permission defines the weighted role hierarchy used by goAuthz
// authorization checks.
//
// # Ordering
//
// Each registered role carries a positive integer weight. [Hierarchy.AtLeast]
// compares weights; roles that were never registered never satisfy a
// comparison. The table is built once at startup and frozen.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import goAuthz, jwt, or identity.
//   - Change weights after [Hierarchy.Freeze].
package permission
