// Package store provides a SQLite-backed provenance catalog of saved
// signals.
//
// Every archive written with a catalog attached gets one row in signals
// and one row per history entry in history_entries. The catalog never
// holds samples; it records where a signal was written, its shape, the
// digest of its history and the history itself, so a pipeline can be
// found and exported again after the archive has moved.
//
// # Ordering
//
//   - Signals are ordered by seq, a per-catalog logical counter, never by
//     wall time: ORDER BY seq ASC, id ASC COLLATE BINARY.
//   - History entries are ordered by position, their index in the history.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// History digests are computed by ir.HistoryDigest over RFC 8785
// canonical JSON, and entry arguments are stored in the same canonical
// form.
package store
