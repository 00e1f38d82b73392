// Package jobs tracks in-memory status for background preparation tasks.
// Task state is intentionally not persisted; after a daemon restart the
// database is the source of truth and stale records are re-driven there.
package jobs
