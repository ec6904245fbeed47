// Package store provides SQLite-backed durable storage for reactor runs.
//
// The store keeps an append-only record of:
//   - Runs: one row per execution, with options, outcome and trace digest
//   - Trace events: the full execution trace of each run
//
// # Critical Patterns
//
// Logical ordering:
//   - Runs and events are ordered by seq INTEGER, never by timestamps
//   - All queries include ORDER BY seq ASC (and id ASC COLLATE BINARY for runs)
//
// Canonical values:
//   - Port and action values are stored as canonical JSON (see trace.MarshalCanonical)
//   - Reading a trace back yields the same trace digest as the recorded run
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
