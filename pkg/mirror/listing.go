package mirror

import (
	"errors"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Anchor is one <a href> of a directory listing.
type Anchor struct {
	// Href is the attribute value as served.
	Href string
	// URL is Href resolved against the listing URL; empty when Href is not a valid reference.
	URL string
}

// Name returns the final path component of the href ("" for directory hrefs
// ending in '/').
func (a Anchor) Name() string {
	if i := strings.LastIndex(a.Href, "/"); i >= 0 {
		return a.Href[i+1:]
	}
	return a.Href
}

// IsDir reports whether the anchor points at a sub-directory.
func (a Anchor) IsDir() bool {
	return strings.HasSuffix(a.Href, "/")
}

// DirName returns the href with surrounding slashes removed.
func (a Anchor) DirName() string {
	return strings.Trim(a.Href, "/")
}

// Listing is a parsed directory page.
type Listing struct {
	// URL is the URL that was requested.
	URL string
	// BaseURL is the URL the page was served from after redirects; anchors resolve against it.
	BaseURL     string
	ContentType string
	Anchors     []Anchor
}

// ParseAnchors tokenizes an HTML document and returns every anchor carrying
// an href attribute, in document order.
func ParseAnchors(base *url.URL, r io.Reader) ([]Anchor, error) {
	var anchors []Anchor
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return anchors, nil
			}
			return anchors, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					anchors = append(anchors, newAnchor(base, string(val)))
					break
				}
				if !more {
					break
				}
			}
		}
	}
}

func newAnchor(base *url.URL, href string) Anchor {
	a := Anchor{Href: href}
	if base == nil {
		return a
	}
	if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
		a.URL = base.ResolveReference(ref).String()
	}
	return a
}
