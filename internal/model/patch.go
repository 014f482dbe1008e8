package model

import (
	"sort"
	"time"
)

// Patch is a partial update: the listed fields are replaced, all others are
// left untouched. Optional fields accept nil to clear them.
type Patch map[Field]any

// Fields returns the patched field names in a stable order.
func (p Patch) Fields() []Field {
	fields := make([]Field, 0, len(p))
	for f := range p {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Has reports whether f is part of the patch.
func (p Patch) Has(f Field) bool {
	_, ok := p[f]
	return ok
}

// Clone returns a shallow copy of the patch.
func (p Patch) Clone() Patch {
	out := make(Patch, len(p))
	for f, v := range p {
		out[f] = v
	}
	return out
}

// Merge returns a new patch holding p overlaid with other.
func (p Patch) Merge(other Patch) Patch {
	out := p.Clone()
	for f, v := range other {
		out[f] = v
	}
	return out
}

// Without returns a copy of p with the given fields removed.
func (p Patch) Without(skip map[Field]struct{}) Patch {
	out := make(Patch, len(p))
	for f, v := range p {
		if _, drop := skip[f]; drop {
			continue
		}
		out[f] = v
	}
	return out
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case *string:
		if s == nil {
			return "", false
		}
		return *s, true
	}
	return "", false
}

func asOptString(v any) *string {
	switch s := v.(type) {
	case string:
		return &s
	case *string:
		if s == nil {
			return nil
		}
		c := *s
		return &c
	}
	return nil
}

func asOptInt64(v any) *int64 {
	switch n := v.(type) {
	case int64:
		return &n
	case int:
		c := int64(n)
		return &c
	case *int64:
		if n == nil {
			return nil
		}
		c := *n
		return &c
	}
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func asStrings(v any) []string {
	list, ok := v.([]string)
	if !ok {
		return nil
	}
	return append([]string(nil), list...)
}

func asTime(v any) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// Int64Ptr returns a pointer to n.
func Int64Ptr(n int64) *int64 { return &n }

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneInt64Ptr(n *int64) *int64 {
	if n == nil {
		return nil
	}
	c := *n
	return &c
}
