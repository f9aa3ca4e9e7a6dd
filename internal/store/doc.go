// Package store persists the OCR result cache and extraction run history in
// SQLite.
//
// The database lives at config.DatabasePath and is opened in WAL mode so a
// `hardsub runs` listing never blocks a running extraction. Writes retry on
// SQLITE_BUSY with a short exponential backoff. The schema is created from an
// embedded schema.sql and guarded by a version row; a mismatch asks the user
// to clear the database rather than migrating in place.
package store
