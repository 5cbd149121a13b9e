package resolve

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/fulmenhq/isolinks/pkg/catalog"
	"github.com/fulmenhq/isolinks/pkg/checksum"
)

// Source names the strategy that produced a record.
type Source string

const (
	SourceWebScrape          Source = "web_scrape"
	SourceDirect             Source = "direct"
	SourceWindowsProductsXML Source = "windows_products_xml"
)

// Record is the resolved download of one distribution. URL is never empty;
// HashType and HashValue are either both set or both empty.
type Record struct {
	URL       string
	HashType  checksum.Algorithm
	HashValue string
	Version   string
	Size      int64
	HasSize   bool
	Source    Source
}

// HasHash reports whether a digest is attached.
func (r *Record) HasHash() bool {
	return r.HashType != checksum.AlgorithmUnknown && r.HashValue != ""
}

func (r *Record) setDigest(alg checksum.Algorithm, value string) {
	if alg == checksum.AlgorithmUnknown || value == "" {
		r.HashType, r.HashValue = checksum.AlgorithmUnknown, ""
		return
	}
	r.HashType, r.HashValue = alg, value
}

type recordJSON struct {
	URL       string  `json:"url"`
	HashType  *string `json:"hash_type"`
	HashValue *string `json:"hash_value"`
	Version   string  `json:"version"`
	Size      *int64  `json:"size,omitempty"`
	Source    Source  `json:"source"`
}

// MarshalJSON writes the links.json shape: hash fields are null when absent
// and size is omitted when unknown.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{URL: r.URL, Version: r.Version, Source: r.Source}
	if r.HasHash() {
		ht, hv := string(r.HashType), r.HashValue
		out.HashType, out.HashValue = &ht, &hv
	}
	if r.HasSize {
		size := r.Size
		out.Size = &size
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Outcome is the tagged result of resolving one catalog entry: a Record, or
// the reason there is none.
type Outcome struct {
	Name    string
	Mode    catalog.Mode
	Record  *Record
	Err     error
	Elapsed time.Duration
}

// Resolved builds a successful outcome.
func Resolved(name string, rec *Record) Outcome {
	return Outcome{Name: name, Record: rec}
}

// Unresolved builds a failed outcome.
func Unresolved(name string, reason error) Outcome {
	return Outcome{Name: name, Err: reason}
}

// OK reports whether the outcome carries a record.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Record != nil
}

// Results collects outcomes by name. Writers insert under a mutex; readers
// see outcomes in catalog order regardless of completion order.
type Results struct {
	mu       sync.Mutex
	order    []string
	outcomes map[string]Outcome
}

// NewResults creates an empty result set whose iteration order is names.
func NewResults(names []string) *Results {
	return &Results{
		order:    append([]string(nil), names...),
		outcomes: make(map[string]Outcome, len(names)),
	}
}

// Set stores o under o.Name. Names outside the initial order are appended.
func (r *Results) Set(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, known := r.outcomes[o.Name]; !known && !r.inOrder(o.Name) {
		r.order = append(r.order, o.Name)
	}
	r.outcomes[o.Name] = o
}

func (r *Results) inOrder(name string) bool {
	for _, n := range r.order {
		if n == name {
			return true
		}
	}
	return false
}

// Get returns the outcome stored for name.
func (r *Results) Get(name string) (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outcomes[name]
	return o, ok
}

// Outcomes returns the stored outcomes in order.
func (r *Results) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Outcome, 0, len(r.outcomes))
	for _, name := range r.order {
		if o, ok := r.outcomes[name]; ok {
			out = append(out, o)
		}
	}
	return out
}

// Summary counts outcomes.
type Summary struct {
	Processed  int
	Resolved   int
	Unresolved int
}

// Summary returns the counts over all stored outcomes.
func (r *Results) Summary() Summary {
	var s Summary
	for _, o := range r.Outcomes() {
		s.Processed++
		if o.OK() {
			s.Resolved++
		} else {
			s.Unresolved++
		}
	}
	return s
}
