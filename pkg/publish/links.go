// Package publish persists resolution results and optionally commits them.
package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fulmenhq/isolinks/pkg/logger"
	"github.com/fulmenhq/isolinks/pkg/resolve"
	"github.com/fulmenhq/isolinks/pkg/safeio"
	"github.com/go-git/go-billy/v5"
)

const indent = "    "

// entry is one top-level key of the links document.
type entry struct {
	key   string
	value json.RawMessage
}

// WriteOptions controls how WriteResults treats the existing document.
type WriteOptions struct {
	// Prune drops existing keys that have no outcome in results. Full
	// catalog runs set it so removed distributions disappear.
	Prune bool
}

// WriteResults merges results into the JSON object stored at name: existing
// keys keep their position and take the new value, new keys are appended.
// Unresolved outcomes are written as null. The file is rewritten only when
// its content changes; the return value reports whether it did.
func WriteResults(fs billy.Filesystem, name string, results *resolve.Results, opts WriteOptions) (bool, error) {
	old, exists, err := safeio.ReadFile(fs, name)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var entries []entry
	if exists && len(bytes.TrimSpace(old)) > 0 {
		entries, err = decodeObject(old)
		if err != nil {
			logger.Warn("Existing results file is not a JSON object; replacing it",
				logger.String("path", name),
				logger.Err(err))
			entries = nil
		}
	}

	outcomes := results.Outcomes()
	if opts.Prune {
		entries = prune(entries, outcomes, name)
	}

	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.key] = i
	}
	for _, o := range outcomes {
		value := json.RawMessage("null")
		if o.OK() {
			b, err := marshal(o.Record)
			if err != nil {
				return false, fmt.Errorf("failed to encode %s: %w", o.Name, err)
			}
			value = b
		}
		if i, ok := index[o.Name]; ok {
			entries[i].value = value
			continue
		}
		index[o.Name] = len(entries)
		entries = append(entries, entry{key: o.Name, value: value})
	}

	data, err := encodeObject(entries)
	if err != nil {
		return false, err
	}
	if exists && bytes.Equal(old, data) {
		logger.Debug("Results file unchanged", logger.String("path", name))
		return false, nil
	}
	if err := safeio.WriteFileAtomic(fs, name, data); err != nil {
		return false, err
	}
	return true, nil
}

// prune keeps only the entries that have an outcome.
func prune(entries []entry, outcomes []resolve.Outcome, name string) []entry {
	keep := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		keep[o.Name] = true
	}
	kept := entries[:0]
	for _, e := range entries {
		if keep[e.key] {
			kept = append(kept, e)
			continue
		}
		logger.Info("Removing entry no longer in catalog", logger.String("path", name), logger.String("name", e.key))
	}
	return kept
}

// decodeObject reads a JSON object keeping its key order.
func decodeObject(data []byte) ([]entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected an object, got %v", tok)
	}

	var entries []entry
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected a key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if i, dup := seen[key]; dup {
			entries[i].value = raw
			continue
		}
		seen[key] = len(entries)
		entries = append(entries, entry{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after object")
	}
	return entries, nil
}

// encodeObject writes entries as a four-space indented object with a
// trailing newline. Non-ASCII text and HTML characters are written as is.
func encodeObject(entries []entry) ([]byte, error) {
	if len(entries) == 0 {
		return []byte("{}\n"), nil
	}
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, e := range entries {
		key, err := marshal(e.key)
		if err != nil {
			return nil, err
		}
		buf.WriteString(indent)
		buf.Write(key)
		buf.WriteString(": ")
		if err := json.Indent(&buf, e.value, indent, indent); err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", e.key, err)
		}
		if i < len(entries)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
