// Package catalog loads the declarative list of distributions to resolve.
package catalog

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/fulmenhq/isolinks/pkg/logger"
	"github.com/fulmenhq/isolinks/pkg/pattern"
	"github.com/pelletier/go-toml/v2"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// RootKey holds the list of entries in a catalog document.
const RootKey = "distributions"

//go:embed schemas/*.json
var schemaFS embed.FS

// ErrInvalidDocument is wrapped by every error about the catalog as a whole.
var ErrInvalidDocument = errors.New("invalid catalog document")

// Format is a catalog serialization.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// TextFetcher downloads a remote catalog.
type TextFetcher interface {
	FetchText(ctx context.Context, rawURL string) (string, error)
}

// DetectFormat picks the format from the source's extension; YAML is the
// fallback since it also reads JSON.
func DetectFormat(source string) Format {
	if i := strings.IndexAny(source, "?#"); i >= 0 && isRemote(source) {
		source = source[:i]
	}
	switch strings.ToLower(path.Ext(source)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load reads a catalog from a local path or an http(s) URL. The fetcher is
// only used for remote sources and may be nil otherwise.
func Load(ctx context.Context, source string, fetcher TextFetcher) (*Catalog, error) {
	var data []byte
	if isRemote(source) {
		if fetcher == nil {
			return nil, fmt.Errorf("no fetcher for remote catalog %s", source)
		}
		logger.Info("Fetching catalog", logger.String("url", source))
		text, err := fetcher.FetchText(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch catalog %s: %w", source, err)
		}
		data = []byte(text)
	} else {
		b, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", source, err)
		}
		data = b
	}

	cat, err := Parse(data, DetectFormat(source))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	cat.Source = source
	return cat, nil
}

// Parse decodes and validates a catalog document. Document-level problems
// are returned as errors; entry-level problems end up on the entries.
func Parse(data []byte, format Format) (*Catalog, error) {
	doc, err := decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	schemas, err := compiledSchemas()
	if err != nil {
		return nil, err
	}
	if err := validate(schemas.document, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	items, _ := doc.(map[string]any)[RootKey].([]any)
	cat := &Catalog{}
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		raw, _ := item.(map[string]any)
		name := scalarString(raw["Name"])
		if name == "" {
			logger.Warn("Skipping catalog entry without Name", logger.Int("index", i))
			continue
		}
		if seen[name] {
			logger.Warn("Skipping duplicate catalog entry", logger.String("name", name), logger.Int("index", i))
			continue
		}
		seen[name] = true

		entry := buildEntry(name, raw, schemas.entry)
		for _, w := range entry.Warnings {
			logger.Warn(w, logger.String("name", name))
		}
		if entry.Err != nil {
			logger.Warn("Catalog entry is invalid", logger.String("name", name), logger.Err(entry.Err))
		}
		cat.Entries = append(cat.Entries, entry)
	}
	return cat, nil
}

func decode(data []byte, format Format) (any, error) {
	var doc any
	switch format {
	case FormatTOML:
		var m map[string]any
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("toml: %w", err)
		}
		doc = m
	default:
		// yaml.v3 reads JSON documents as well.
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", format, err)
		}
	}
	return normalize(doc), nil
}

// normalize converts decoder output into JSON-compatible values: string map
// keys and []any slices.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

type schemaSet struct {
	document *gojsonschema.Schema
	entry    *gojsonschema.Schema
}

var compiledSchemas = sync.OnceValues(func() (schemaSet, error) {
	doc, err := loadSchema("schemas/catalog.schema.json")
	if err != nil {
		return schemaSet{}, err
	}
	entry, err := loadSchema("schemas/entry.schema.json")
	if err != nil {
		return schemaSet{}, err
	}
	return schemaSet{document: doc, entry: entry}, nil
})

func loadSchema(name string) (*gojsonschema.Schema, error) {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("embedded schema %s: %w", name, err)
	}
	sch, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	return sch, nil
}

// validate returns nil or an error listing every schema violation.
func validate(sch *gojsonschema.Schema, v any) error {
	res, err := sch.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.New(strings.Join(msgs, "; "))
}

var sha256Hex = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

func buildEntry(name string, raw map[string]any, entrySchema *gojsonschema.Schema) Entry {
	entry := Entry{Name: name}

	res, err := entrySchema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		entry.Err = &ValidationError{Name: name, Message: err.Error()}
		return entry
	}
	if !res.Valid() {
		first := res.Errors()[0]
		entry.Err = &ValidationError{Name: name, Field: first.Field(), Message: first.Description()}
		return entry
	}

	d := &Descriptor{
		Name:         name,
		URL:          strings.TrimSpace(stringField(raw, "URL")),
		Extension:    strings.TrimSpace(stringField(raw, "Extension")),
		Version:      strings.TrimSpace(scalarString(raw["Version"])),
		SHA256:       strings.TrimSpace(stringField(raw, "SHA256")),
		Direct:       strings.TrimSpace(stringField(raw, "DIRECT")),
		WindowsMode:  isEnabled(raw["WindowsMode"]),
		Edition:      strings.TrimSpace(stringField(raw, "Edition")),
		Language:     strings.TrimSpace(stringField(raw, "Language")),
		Architecture: strings.TrimSpace(stringField(raw, "Architecture")),
	}

	criteria, err := pattern.CriteriaFrom(raw["VersionMatch"])
	if err != nil {
		entry.Warnings = append(entry.Warnings, fmt.Sprintf("VersionMatch ignored: %v", err))
	}
	d.VersionMatch = criteria

	switch hm := raw["HashMatch"].(type) {
	case nil:
	case string:
		d.HashMatch = strings.TrimSpace(hm)
	default:
		entry.Warnings = append(entry.Warnings, fmt.Sprintf("HashMatch ignored: expected a string, got %T", hm))
	}

	switch nav := raw["PathNavigation"].(type) {
	case nil:
	case []any:
		for _, seg := range nav {
			s := strings.Trim(strings.TrimSpace(scalarString(seg)), "/")
			if s != "" {
				d.PathNavigation = append(d.PathNavigation, s)
			}
		}
	default:
		entry.Warnings = append(entry.Warnings, fmt.Sprintf("PathNavigation ignored: expected a list, got %T", nav))
	}

	if d.SHA256 != "" && !sha256Hex.MatchString(d.SHA256) {
		entry.Warnings = append(entry.Warnings, fmt.Sprintf("SHA256 ignored: expected 64 hex characters, got %q", d.SHA256))
		d.SHA256 = ""
	}

	if d.HashMatch != "" && !pattern.ValidGlob(d.HashMatch) {
		entry.Warnings = append(entry.Warnings, fmt.Sprintf("HashMatch ignored: malformed glob %q", d.HashMatch))
		d.HashMatch = ""
	}

	if verr := checkMode(d); verr != nil {
		entry.Err = verr
		return entry
	}
	entry.Descriptor = d
	return entry
}

// checkMode enforces the fields each mode cannot run without. Metadata
// selectors are checked by the metadata strategy itself.
func checkMode(d *Descriptor) *ValidationError {
	switch d.Mode() {
	case ModeScrape:
		if d.URL == "" {
			return &ValidationError{Name: d.Name, Field: "URL", Message: "required for directory scraping"}
		}
		if !isRemote(d.URL) {
			return &ValidationError{Name: d.Name, Field: "URL", Message: "must be an http(s) URL"}
		}
		if d.Extension == "" {
			return &ValidationError{Name: d.Name, Field: "Extension", Message: "required for directory scraping"}
		}
		if !pattern.ValidGlob(d.Extension) {
			return &ValidationError{Name: d.Name, Field: "Extension", Message: "malformed glob"}
		}
	case ModeDirect:
		if !isRemote(d.Direct) {
			return &ValidationError{Name: d.Name, Field: "DIRECT", Message: "must be an http(s) URL"}
		}
	}
	return nil
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// scalarString renders strings and numbers the way they were written.
func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
