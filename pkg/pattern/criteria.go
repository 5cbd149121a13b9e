/*
Copyright © 2026 3 Leaps <info@3leaps.net>
*/
package pattern

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedCriteria is returned by CriteriaFrom for values that are neither
// a string nor a list. The accompanying Criteria matches everything.
var ErrMalformedCriteria = errors.New("version criteria must be a string or a list of strings")

// Criteria is a version filter: a set of substrings that must all occur in a
// candidate name. The zero value matches every name.
type Criteria struct {
	terms []string
}

// Substring returns criteria requiring a single substring. An empty string
// yields criteria that match everything.
func Substring(s string) Criteria {
	if s == "" {
		return Criteria{}
	}
	return Criteria{terms: []string{s}}
}

// AllOf returns criteria requiring every term.
func AllOf(terms ...string) Criteria {
	return Criteria{terms: append([]string(nil), terms...)}
}

// CriteriaFrom builds criteria from a decoded catalog value: nil, "" and an
// empty list match everything; a string is one required substring; a list
// requires every element, scalars being stringified. Other shapes fail open:
// the result matches everything and ErrMalformedCriteria is returned so the
// caller can warn.
func CriteriaFrom(v any) (Criteria, error) {
	switch t := v.(type) {
	case nil:
		return Criteria{}, nil
	case string:
		return Substring(t), nil
	case []string:
		return AllOf(t...), nil
	case []any:
		terms := make([]string, 0, len(t))
		for _, item := range t {
			switch s := item.(type) {
			case string:
				terms = append(terms, s)
			case int, int64, uint64, float64, bool:
				terms = append(terms, fmt.Sprint(s))
			default:
				return Criteria{}, fmt.Errorf("%w: list element of type %T", ErrMalformedCriteria, item)
			}
		}
		return AllOf(terms...), nil
	default:
		return Criteria{}, fmt.Errorf("%w: got %T", ErrMalformedCriteria, v)
	}
}

// IsEmpty reports whether the criteria impose no constraint.
func (c Criteria) IsEmpty() bool {
	return len(c.terms) == 0
}

// Terms returns a copy of the required substrings.
func (c Criteria) Terms() []string {
	return append([]string(nil), c.terms...)
}

// Matches reports whether name contains every required substring.
func (c Criteria) Matches(name string) bool {
	for _, term := range c.terms {
		if !strings.Contains(name, term) {
			return false
		}
	}
	return true
}

func (c Criteria) String() string {
	switch len(c.terms) {
	case 0:
		return "<any>"
	case 1:
		return c.terms[0]
	default:
		return "[" + strings.Join(c.terms, ", ") + "]"
	}
}
