// Package cache persists the artifacts of the last successful resolve in a
// SQLite file.
//
// Two artifacts are stored: the raw environment that was resolved and the
// compiled scope snapshot. They are always written and dropped together in
// a single transaction, so a reader sees either both from the same resolve
// or neither.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - user_version: Schema version, refused when newer than supported
package cache
