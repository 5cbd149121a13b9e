/*
Copyright © 2026 3 Leaps <info@3leaps.net>
*/
package pattern

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchGlob reports whether a single file or directory name matches a shell
// glob such as "debian-*-amd64-netinst.iso" or "SHA256SUMS*". Matching is
// case-sensitive. A malformed pattern matches nothing.
func MatchGlob(glob, name string) bool {
	if glob == "" {
		return false
	}
	ok, err := doublestar.Match(glob, name)
	if err != nil {
		return false
	}
	return ok
}

// ValidGlob reports whether glob is syntactically valid.
func ValidGlob(glob string) bool {
	return strings.TrimSpace(glob) != "" && doublestar.ValidatePattern(glob)
}
