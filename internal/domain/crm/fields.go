package crm

import (
	"sort"
	"strings"
)

// Field names a mutable attribute of an Account or a Contact.
// The string value doubles as the storage column name.
type Field string

const (
	FieldName               Field = "name"
	FieldFirstName          Field = "first_name"
	FieldLastName           Field = "last_name"
	FieldEmail              Field = "email"
	FieldParent             Field = "parent_id"
	FieldClassification     Field = "classification_id"
	FieldExternalProfileRef Field = "external_profile_ref"
)

// SyncRelevantFields are the fields whose mutation can trigger propagation
var SyncRelevantFields = NewFieldSet(FieldFirstName, FieldLastName, FieldEmail, FieldName)

// ProfileFields are the contact fields mirrored to the external profile store
var ProfileFields = NewFieldSet(FieldFirstName, FieldLastName, FieldEmail)

// ParseField converts a raw field name, rejecting unknown names
func ParseField(raw string) (Field, bool) {
	switch f := Field(strings.TrimSpace(raw)); f {
	case FieldName, FieldFirstName, FieldLastName, FieldEmail,
		FieldParent, FieldClassification, FieldExternalProfileRef:
		return f, true
	default:
		return "", false
	}
}

// FieldSet is an unordered set of fields
type FieldSet map[Field]struct{}

// NewFieldSet builds a set from the given fields
func NewFieldSet(fields ...Field) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

// ParseFieldSet parses a list of raw names. Unknown names are ignored and
// returned separately so callers can decide whether to reject them.
func ParseFieldSet(raw []string) (FieldSet, []string) {
	s := make(FieldSet, len(raw))
	var unknown []string
	for _, r := range raw {
		if r == "" {
			continue
		}
		f, ok := ParseField(r)
		if !ok {
			unknown = append(unknown, r)
			continue
		}
		s[f] = struct{}{}
	}
	return s, unknown
}

func (s FieldSet) Add(f Field) {
	s[f] = struct{}{}
}

func (s FieldSet) Has(f Field) bool {
	_, ok := s[f]
	return ok
}

func (s FieldSet) HasAny(fields ...Field) bool {
	for _, f := range fields {
		if s.Has(f) {
			return true
		}
	}
	return false
}

func (s FieldSet) Len() int {
	return len(s)
}

func (s FieldSet) IsEmpty() bool {
	return len(s) == 0
}

// Intersect returns the fields present in both sets
func (s FieldSet) Intersect(other FieldSet) FieldSet {
	out := make(FieldSet)
	for f := range s {
		if other.Has(f) {
			out[f] = struct{}{}
		}
	}
	return out
}

// Intersects reports whether the sets share at least one field
func (s FieldSet) Intersects(other FieldSet) bool {
	for f := range s {
		if other.Has(f) {
			return true
		}
	}
	return false
}

// Sorted returns the fields in lexical order
func (s FieldSet) Sorted() []Field {
	out := make([]Field, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted field names
func (s FieldSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, f := range sorted {
		out[i] = string(f)
	}
	return out
}

// String renders the set as a comma separated sorted list
func (s FieldSet) String() string {
	return strings.Join(s.Strings(), ",")
}

// ParseFieldList is the inverse of FieldSet.String
func ParseFieldList(list string) FieldSet {
	if list == "" {
		return NewFieldSet()
	}
	set, _ := ParseFieldSet(strings.Split(list, ","))
	return set
}
