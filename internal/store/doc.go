// Package store provides the SQLite-backed authoritative ledger.
//
// It is the "remote" of the client core: it implements gateway.Gateway and is
// served over REST by package httpapi.
//
// # Tables
//
//   - customers: one row per customer, seq gives creation order
//   - transactions: append-only value transfers, ON DELETE CASCADE
//   - settings: key/value, holds the bcrypt PIN hash
//
// # Ordering
//
// Customer queries use ORDER BY seq ASC, id ASC COLLATE BINARY. History
// queries use ORDER BY date_ns DESC, id DESC COLLATE BINARY (newest first).
// Amounts are stored as decimal strings, never floats.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
