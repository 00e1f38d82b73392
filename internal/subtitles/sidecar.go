package subtitles

import (
	"os"
	"path/filepath"
	"strings"
)

// sidecarExtensions is the recognized subtitle file extension order.
var sidecarExtensions = []string{".srt", ".ass", ".ssa", ".vtt", ".sub"}

// sidecarLanguageTags are the language infixes recognized in sidecar
// names like movie.en.srt, in preference order.
var sidecarLanguageTags = []string{"zh", "en", "chi", "eng", "chs", "cht", "cn"}

// ScanSidecars returns subtitle files co-located with the video, matching
// either {stem}{ext} or {stem}.{lang}{ext}. Ordering is deterministic: by
// extension in the recognized order, then the bare variant before each
// language tag in preference order.
func ScanSidecars(videoPath string) []string {
	if _, err := os.Stat(videoPath); err != nil {
		return nil
	}

	dir := filepath.Dir(videoPath)
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))

	var found []string
	for _, ext := range sidecarExtensions {
		candidate := filepath.Join(dir, stem+ext)
		if fileExists(candidate) {
			found = append(found, candidate)
		}
		for _, lang := range sidecarLanguageTags {
			candidate := filepath.Join(dir, stem+"."+lang+ext)
			if fileExists(candidate) {
				found = append(found, candidate)
			}
		}
	}
	return found
}

// FirstSRT returns the first .srt path from a sidecar scan result, or the
// empty string when none exists.
func FirstSRT(paths []string) string {
	for _, path := range paths {
		if strings.EqualFold(filepath.Ext(path), ".srt") {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
