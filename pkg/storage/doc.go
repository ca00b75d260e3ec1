// Package storage provides storage implementations for job persistence.
//
// This package includes:
//   - GormStorage: A GORM-based core.Store for SQLite and PostgreSQL
//   - Connection pool configuration with an SQLite single-connection preset
//
// Jobs are stored one row per job; the serialized job is an opaque JSON
// payload next to a status column and an insertion sequence that drives
// the FIFO queue cursor.
package storage
