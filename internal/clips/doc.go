// Package clips cuts keyword-matched segments out of videos with ffmpeg.
// Cut boundaries come from subtitle cue timing, widened by a configurable
// padding and clamped at zero.
package clips
