// Package textutil provides filename sanitization for user-supplied text
// that ends up in output paths.
package textutil

import (
	"regexp"
	"strings"
)

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_\-.]`)

// SanitizeName replaces every character outside [A-Za-z0-9_-.] with an
// underscore so keywords are safe in filenames.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "clip"
	}
	return unsafePathChars.ReplaceAllString(name, "_")
}
