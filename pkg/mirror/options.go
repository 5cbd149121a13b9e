package mirror

import (
	"net/http"
	"time"
)

// Browser-like defaults. Several mirror networks answer 403 to obvious bots.
const (
	DefaultUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultReferer        = "https://getfedora.org/"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.5"

	DefaultListingTimeout = 20 * time.Second
	DefaultProbeTimeout   = 15 * time.Second
	DefaultMaxAttempts    = 5
)

// Options configures one Client. Each resolution run builds its own value;
// nothing here is process-global.
type Options struct {
	UserAgent      string
	Referer        string
	Accept         string
	AcceptLanguage string

	// ListingTimeout bounds a directory listing GET.
	ListingTimeout time.Duration
	// ProbeTimeout bounds HEAD probes and checksum file downloads.
	ProbeTimeout time.Duration
	// MaxAttempts is the total number of tries for a listing, first try included.
	MaxAttempts int
}

// DefaultOptions returns the browser-emulation header set and the standard timeouts.
func DefaultOptions() Options {
	return Options{
		UserAgent:      DefaultUserAgent,
		Referer:        DefaultReferer,
		Accept:         DefaultAccept,
		AcceptLanguage: DefaultAcceptLanguage,
		ListingTimeout: DefaultListingTimeout,
		ProbeTimeout:   DefaultProbeTimeout,
		MaxAttempts:    DefaultMaxAttempts,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.Accept == "" {
		o.Accept = d.Accept
	}
	if o.AcceptLanguage == "" {
		o.AcceptLanguage = d.AcceptLanguage
	}
	if o.ListingTimeout <= 0 {
		o.ListingTimeout = d.ListingTimeout
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = d.ProbeTimeout
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	return o
}

// Headers returns the header set attached to every request.
func (o Options) Headers() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", o.UserAgent)
	if o.Referer != "" {
		h.Set("Referer", o.Referer)
	}
	h.Set("Accept", o.Accept)
	h.Set("Accept-Language", o.AcceptLanguage)
	return h
}
