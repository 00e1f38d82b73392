// Package ffprobe inspects media containers via the ffprobe tool and
// reports their subtitle streams. Tool absence, tool failure, and
// unparseable output are all surfaced as classified errors alongside an
// empty report rather than a crash.
package ffprobe
