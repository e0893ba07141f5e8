// Package sqlite provides the on-device driven.RecordStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. All logical tables (file records, chat sessions, workspace
// sessions, meta sentinels, scheduler state) live in one physical table
// keyed by (tbl, key), with the record itself stored as JSON text.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.docchat/data/docchat.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. Rename runs in a transaction,
// so readers never observe both keys or neither.
package sqlite
