package gateway

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Args are the decoded JSON arguments of a tool call.
type Args map[string]any

// identifier reads a required positive integer id (cid, sid, aid).
// Integral JSON numbers and decimal digit strings are both accepted.
func (a Args) identifier(key string) (int64, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, invalidArg("missing required argument %q", key)
	}
	id, ok := toInt64(v)
	if !ok || id <= 0 {
		return 0, invalidArg("argument %q must be a positive integer", key)
	}
	return id, nil
}

// identifiers reads a required non-empty array of positive integer ids, at most limit long.
func (a Args) identifiers(key string, limit int) ([]int64, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, invalidArg("missing required argument %q", key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, invalidArg("argument %q must be an array of positive integers", key)
	}
	if len(list) == 0 {
		return nil, invalidArg("argument %q must not be empty", key)
	}
	if len(list) > limit {
		return nil, invalidArg("argument %q accepts at most %d ids", key, limit)
	}
	out := make([]int64, 0, len(list))
	for i, item := range list {
		id, ok := toInt64(item)
		if !ok || id <= 0 {
			return nil, invalidArg("argument %q[%d] must be a positive integer", key, i)
		}
		out = append(out, id)
	}
	return out, nil
}

// requiredString reads a required string, trimmed and non-empty.
func (a Args) requiredString(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", invalidArg("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidArg("argument %q must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalidArg("argument %q must not be empty", key)
	}
	return s, nil
}

// optionalInt reads an integer in [lo, hi], returning def when the key is absent.
func (a Args) optionalInt(key string, def, lo, hi int) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	n, ok := toInt64(v)
	if !ok || n < int64(lo) || n > int64(hi) {
		return 0, invalidArg("argument %q must be an integer between %d and %d", key, lo, hi)
	}
	return int(n), nil
}

func (a Args) optionalBool(key string, def bool) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalidArg("argument %q must be a boolean", key)
	}
	return b, nil
}

// optionalStrings reads an array of strings; present reports whether the key was given.
func (a Args) optionalStrings(key string) (vals []string, present bool, err error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, true, invalidArg("argument %q must be an array of strings", key)
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, true, invalidArg("argument %q[%d] must be a non-empty string", key, i)
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, true, nil
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || t > math.MaxInt64 || t < math.MinInt64 {
			return 0, false
		}
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return 0, false
			}
		}
		n, err := strconv.ParseInt(s, 10, 64)
		return n, err == nil
	}
	return 0, false
}
