// Package products reads the vendor products.xml catalog of Windows ESD
// images and selects the file matching an edition/language/architecture triple.
package products

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

var (
	// ErrNoMatch means no File element carries all three selectors.
	ErrNoMatch = errors.New("no matching File entry in products document")
	// ErrMissingPath means the matching File element has no FilePath.
	ErrMissingPath = errors.New("matching File entry has no FilePath")
)

// Selector identifies one image in the products document.
type Selector struct {
	Edition      string
	Language     string
	Architecture string
}

// Missing returns the names of empty selector fields.
func (s Selector) Missing() []string {
	var missing []string
	if strings.TrimSpace(s.Edition) == "" {
		missing = append(missing, "Edition")
	}
	if strings.TrimSpace(s.Language) == "" {
		missing = append(missing, "Language")
	}
	if strings.TrimSpace(s.Architecture) == "" {
		missing = append(missing, "Architecture")
	}
	return missing
}

func (s Selector) String() string {
	return fmt.Sprintf("%s/%s/%s", s.Edition, s.Language, s.Architecture)
}

// Record is the subset of a File element the resolver publishes.
type Record struct {
	FileName string
	FilePath string
	Sha1     string
	Size     int64
	HasSize  bool
}

// Parse reads a products document and returns the first File element whose
// LanguageCode, Edition and Architecture children equal the selector.
func Parse(r io.Reader, sel Selector) (*Record, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("products document is not well-formed: %w", err)
	}

	for _, file := range doc.FindElements("//File") {
		if childText(file, "LanguageCode") != sel.Language ||
			childText(file, "Edition") != sel.Edition ||
			childText(file, "Architecture") != sel.Architecture {
			continue
		}

		rec := &Record{
			FileName: childText(file, "FileName"),
			FilePath: childText(file, "FilePath"),
			Sha1:     childText(file, "Sha1"),
		}
		if size := childText(file, "Size"); size != "" {
			if n, err := strconv.ParseInt(size, 10, 64); err == nil && n >= 0 {
				rec.Size, rec.HasSize = n, true
			}
		}
		if rec.FilePath == "" {
			return nil, fmt.Errorf("%w (%s)", ErrMissingPath, sel)
		}
		return rec, nil
	}
	return nil, fmt.Errorf("%w for %s", ErrNoMatch, sel)
}

// ParseFile is Parse over a file on disk.
func ParseFile(path string, sel Selector) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f, sel)
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}
