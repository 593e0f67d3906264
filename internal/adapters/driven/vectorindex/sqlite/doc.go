// Package sqlite provides a SQLite-backed implementation of driven.VectorIndex.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Vectors are stored as little-endian float32 blobs next to
// their JSON payload, and queries are answered by an exact scan of the
// collection, which suits corpora of up to a few hundred thousand chunks.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
//
// # Ordering
//
// Every point carries an insertion sequence number. Replacing a point keeps
// its original sequence, so equal scores are always returned in first
// insertion order.
//
// # Data Location
//
// By default, the database is stored at ~/.wikirag/data/vectors.db
package sqlite
