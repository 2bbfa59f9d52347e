// Package state persists crawl progress in SQLite.
//
// Two tables back the store: processed records one row per item id with a
// closed status (seen, ok, error), and checkpoints holds opaque key/value
// progress markers such as the next listing page to visit. Every operation is
// a single statement, so a crash never leaves a half-written record.
//
// Rows are never deleted. Writes overwrite in place (last write wins) and are
// serialized inside the process; the harvest runner's file lock keeps a second
// process from writing concurrently. Failures are returned as *Error values
// that match ErrStore and are not retried here.
//
// Schema changes bump schemaVersion in schema.go; older databases are rejected
// with ErrSchemaMismatch.
package state
