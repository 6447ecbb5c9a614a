package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a cached read: resource, operation, then arguments, in that
// order. Each part is stored in canonical JSON so equal argument sets produce
// equal keys (map keys are sorted by encoding/json, struct fields keep their
// declaration order).
type Key struct {
	parts []string
}

// NewKey builds a key from a resource name followed by operation and arguments.
func NewKey(resource string, parts ...any) Key {
	k := Key{parts: make([]string, 0, len(parts)+1)}
	k.parts = append(k.parts, encodePart(resource))
	for _, p := range parts {
		k.parts = append(k.parts, encodePart(p))
	}
	return k
}

// ParseKey reverses Key.String.
func ParseKey(s string) (Key, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Key{}, fmt.Errorf("parse key %q: %w", s, err)
	}
	k := Key{parts: make([]string, len(raw))}
	for i, r := range raw {
		k.parts[i] = string(r)
	}
	return k, nil
}

func encodePart(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprint(v))
	}
	return string(b)
}

// Append returns a longer key; k itself is not modified.
func (k Key) Append(parts ...any) Key {
	out := Key{parts: make([]string, 0, len(k.parts)+len(parts))}
	out.parts = append(out.parts, k.parts...)
	for _, p := range parts {
		out.parts = append(out.parts, encodePart(p))
	}
	return out
}

// Len is the number of parts.
func (k Key) Len() int { return len(k.parts) }

// IsZero reports whether k has no parts.
func (k Key) IsZero() bool { return len(k.parts) == 0 }

// Resource returns the first part decoded as a string.
func (k Key) Resource() string {
	if len(k.parts) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal([]byte(k.parts[0]), &s); err != nil {
		return k.parts[0]
	}
	return s
}

// HasPrefix reports whether the leading parts of k equal prefix.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix.parts) > len(k.parts) {
		return false
	}
	for i, p := range prefix.parts {
		if k.parts[i] != p {
			return false
		}
	}
	return true
}

// Equal compares all parts.
func (k Key) Equal(o Key) bool {
	return len(k.parts) == len(o.parts) && k.HasPrefix(o)
}

// String renders the key as a JSON array, e.g. ["warranties","status","ACTIVE"].
func (k Key) String() string {
	return "[" + strings.Join(k.parts, ",") + "]"
}
