// Package versioning orders artifact and directory names by the numbers embedded in
// them and derives a display version for a resolved artifact.
package versioning

import (
	"regexp"
	"sort"
	"strings"
)

// Unknown is reported when no version can be derived.
const Unknown = "Unknown"

type Comparison int

const (
	ComparisonLess Comparison = iota - 1
	ComparisonEqual
	ComparisonGreater
)

// Key is the ordering key of a name: every maximal run of digits, in order of
// appearance, with leading zeros stripped. A nil Key means the name has no
// digits and sorts below every numeric key.
type Key []string

var (
	digitRun       = regexp.MustCompile(`\d+`)
	filenameSemver = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?(?:-\d+)?`)
	segmentSemver  = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-\d+)?$`)
	buildPrefix    = regexp.MustCompile(`^\d+\.\d+`)
)

// KeyOf extracts the ordering key from a candidate name. Surrounding slashes
// (directory hrefs) are ignored.
func KeyOf(name string) Key {
	runs := digitRun.FindAllString(strings.Trim(name, "/"), -1)
	if len(runs) == 0 {
		return nil
	}
	key := make(Key, len(runs))
	for i, r := range runs {
		r = strings.TrimLeft(r, "0")
		if r == "" {
			r = "0"
		}
		key[i] = r
	}
	return key
}

// Compare orders two keys as integer tuples. Components are compared by
// magnitude without converting to a fixed-width integer, so arbitrarily long
// digit runs (build stamps, dates) cannot overflow. A shorter key that is a
// prefix of a longer one sorts first.
func Compare(a, b Key) Comparison {
	switch {
	case a == nil && b == nil:
		return ComparisonEqual
	case a == nil:
		return ComparisonLess
	case b == nil:
		return ComparisonGreater
	}

	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareDigits(a[i], b[i]); c != ComparisonEqual {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return ComparisonLess
	case len(a) > len(b):
		return ComparisonGreater
	default:
		return ComparisonEqual
	}
}

func compareDigits(a, b string) Comparison {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return ComparisonLess
		}
		return ComparisonGreater
	}
	switch strings.Compare(a, b) {
	case -1:
		return ComparisonLess
	case 1:
		return ComparisonGreater
	default:
		return ComparisonEqual
	}
}

// CompareNames is Compare applied to the keys of two names.
func CompareNames(a, b string) Comparison {
	return Compare(KeyOf(a), KeyOf(b))
}

// SortNewestFirst orders items by descending key. The sort is stable so
// candidates with equal keys keep their discovery order.
func SortNewestFirst[T any](items []T, name func(T) string) {
	keys := make(map[int]Key, len(items))
	idx := make([]int, len(items))
	for i := range items {
		idx[i] = i
		keys[i] = KeyOf(name(items[i]))
	}
	sort.SliceStable(idx, func(x, y int) bool {
		return Compare(keys[idx[x]], keys[idx[y]]) == ComparisonGreater
	})
	sorted := make([]T, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
}

// FromFilename returns the first dotted version found in an artifact filename,
// e.g. "12.5.0" from "debian-12.5.0-amd64-netinst.iso".
func FromFilename(filename string) (string, bool) {
	v := filenameSemver.FindString(filename)
	return v, v != ""
}

// FromDirectoryPath returns the first path segment that is a dotted version,
// e.g. "40" is not one but "24.04" in "/releases/24.04/" is.
func FromDirectoryPath(p string) (string, bool) {
	for _, seg := range strings.Split(p, "/") {
		if segmentSemver.MatchString(seg) {
			return seg, true
		}
	}
	return "", false
}

// FromBuildPrefix returns the leading major.minor of a vendor build filename,
// e.g. "26100.2033" from "26100.2033.241004-2336.ge_release_svc_refresh_CLIENTCONSUMER_RET_x64FRE_en-us.esd".
func FromBuildPrefix(filename string) (string, bool) {
	v := buildPrefix.FindString(filename)
	return v, v != ""
}

// Choose returns explicit when set, otherwise the first derived version that
// was found, otherwise Unknown.
func Choose(explicit string, derived ...func() (string, bool)) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	for _, d := range derived {
		if v, ok := d(); ok {
			return v
		}
	}
	return Unknown
}
