// Package ir provides the canonical intermediate representation shared by the
// ledger runtime, the storage backends and the programs.
//
// ir imports nothing internal. Every other package may import it, which keeps
// it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - amounts and timestamps are int64
//   - Transaction IDs are content-addressed over the signed message only,
//     never over the signatures themselves
//   - All JSON tags use snake_case
//   - Ordering uses the logical seq, never wall-clock time
package ir
