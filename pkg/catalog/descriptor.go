package catalog

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/isolinks/pkg/pattern"
)

// Mode is the resolution strategy a descriptor selects.
type Mode int

const (
	// ModeScrape walks mirror directory listings.
	ModeScrape Mode = iota
	// ModeDirect publishes a literal artifact URL.
	ModeDirect
	// ModeMetadata reads the Windows products.xml document.
	ModeMetadata
)

func (m Mode) String() string {
	switch m {
	case ModeScrape:
		return "scrape"
	case ModeDirect:
		return "direct"
	case ModeMetadata:
		return "metadata"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Descriptor is one validated catalog entry.
type Descriptor struct {
	Name      string
	URL       string
	Extension string

	VersionMatch   pattern.Criteria
	HashMatch      string
	PathNavigation []string

	// Version and SHA256 override derived values when non-empty.
	Version string
	SHA256  string

	// Direct is the literal artifact URL of a DIRECT entry.
	Direct string

	WindowsMode  bool
	Edition      string
	Language     string
	Architecture string
}

// Mode returns ModeMetadata for WindowsMode entries, ModeDirect when a
// literal URL is set, and ModeScrape otherwise.
func (d *Descriptor) Mode() Mode {
	switch {
	case d.WindowsMode:
		return ModeMetadata
	case d.Direct != "":
		return ModeDirect
	default:
		return ModeScrape
	}
}

// ValidationError marks a catalog entry that cannot be resolved as written.
type ValidationError struct {
	Name    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid catalog entry %q: %s", e.Name, e.Message)
	}
	return fmt.Sprintf("invalid catalog entry %q: %s: %s", e.Name, e.Field, e.Message)
}

// Entry is a named catalog item: either a usable Descriptor or the reason it
// is not usable.
type Entry struct {
	Name       string
	Descriptor *Descriptor
	Err        error
	// Warnings lists tolerated problems, such as a malformed VersionMatch.
	Warnings []string
}

// Valid reports whether the entry carries a descriptor.
func (e Entry) Valid() bool {
	return e.Err == nil && e.Descriptor != nil
}

// Mode returns the descriptor's mode, or ModeScrape for invalid entries.
func (e Entry) Mode() Mode {
	if e.Descriptor == nil {
		return ModeScrape
	}
	return e.Descriptor.Mode()
}

// Catalog is the ordered list of entries loaded from one source.
type Catalog struct {
	Source  string
	Entries []Entry
}

// Select returns the entry whose name equals name.
func (c *Catalog) Select(name string) (Entry, bool) {
	for _, e := range c.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns entry names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		names[i] = e.Name
	}
	return names
}

func isEnabled(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "enabled")
	default:
		return false
	}
}
