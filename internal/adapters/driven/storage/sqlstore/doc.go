// Package sqlstore writes flat tables into a relational database.
//
// Two dialects are supported: SQLite through modernc.org/sqlite, a pure Go
// implementation that requires no CGO, and PostgreSQL through lib/pq.
//
// # Tables
//
// A table that does not exist yet is created from the inferred column types
// with the declared primary key. Existing tables are never altered: columns
// the destination lacks are dropped from the write and logged.
//
// # Writes
//
// Every row must carry the primary key. Rows sharing a key are collapsed,
// the later row winning, and the whole table is upserted in one transaction.
package sqlstore
