// Package deps reports the availability of the external tools subclip
// drives: the media inspector, the transcode/cut tool, and the ASR engine.
// Absence of a binary is surfaced as status information, never a crash.
package deps
