// Package subtitles owns the timed-text pipeline: parsing and formatting
// SRT cue lists, locating sidecar subtitle files next to a video, and the
// three-stage acquisition strategy (embedded track, sidecar file, ASR)
// that guarantees exactly one subtitle artifact per video.
package subtitles
