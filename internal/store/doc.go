// Package store provides SQLite-backed storage for query datasets and the
// run log.
//
// A dataset is a table whose rows become a typed slice, one struct field per
// column, so a query document can name a table as a query source. The run
// log is an append-only record of executed queries keyed by the canonical
// fingerprint of their query model.
//
// # Deterministic Reads
//
//   - Table rows are read in rowid order
//   - Runs are read ORDER BY seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - a single connection, since SQLite allows one writer
package store
