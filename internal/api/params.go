package api

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Params are query-string filters. Empty values are left out of the encoded
// query; keys are emitted in sorted order so equal params give equal URLs.
type Params map[string]string

// Set records value under key; an empty value removes the key.
func (p Params) Set(key, value string) Params {
	if strings.TrimSpace(value) == "" {
		delete(p, key)
		return p
	}
	p[key] = value
	return p
}

// SetAny formats value with fmt; nil pointers and empty strings are skipped.
func (p Params) SetAny(key string, value any) Params {
	switch v := value.(type) {
	case nil:
		return p
	case *string:
		if v == nil {
			return p
		}
		return p.Set(key, *v)
	case *int:
		if v == nil {
			return p
		}
		return p.Set(key, fmt.Sprint(*v))
	case *int64:
		if v == nil {
			return p
		}
		return p.Set(key, fmt.Sprint(*v))
	case fmt.Stringer:
		return p.Set(key, v.String())
	default:
		return p.Set(key, fmt.Sprint(v))
	}
}

// Encode renders the query string without a leading '?'.
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[k]))
	}
	return b.String()
}
