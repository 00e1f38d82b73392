// Package whisper invokes the speech recognition tool to synthesise SRT
// subtitles for videos that carry no embedded track and have no sidecar
// file. The detected language is scraped from the tool's stderr.
package whisper
