// Package store provides SQLite-backed durable storage for the ledger.
//
// The store holds two kinds of data:
//   - Accounts: current state, one row per address, overwritten in place
//   - Transactions and Receipts: an append-only log, one receipt per transaction
//
// # Critical Patterns
//
// Logical time:
//   - Log ordering uses seq INTEGER (logical clock), NEVER unix_timestamp
//   - Enables deterministic replay regardless of wall time
//
// Deterministic query results:
//   - Log queries order by seq ASC, id ASC COLLATE BINARY
//   - Account listings order by address COLLATE BINARY
//
// Atomicity:
//   - Every ledger transaction runs inside one SQL transaction (Begin/Commit)
//   - A failed transaction rolls back its account writes
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Args and results are stored as RFC 8785 canonical JSON produced by
// internal/ir, so a round trip through the store preserves receipt IDs.
package store
