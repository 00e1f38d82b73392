// Package store persists video rows and subtitle preparation records in
// SQLite.
//
// Two tables exist: video_metadata (one row per upload) and
// subtitle_processing (at most one current record per video; writing a
// new record replaces the old one inside a transaction that also mirrors
// the outcome onto video_metadata.subtitle_ready). Schema changes bump
// the version in schema.go.
package store
