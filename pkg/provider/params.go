package provider

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Params carries canonical or provider request parameters.
// Values are primitives (string, bool, numbers) or string slices.
type Params map[string]any

// Clone returns a shallow copy; slices are copied as well.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		if s, ok := v.([]string); ok {
			out[k] = append([]string(nil), s...)
			continue
		}
		out[k] = v
	}
	return out
}

// String returns the value under key rendered as a string, or fallback when absent.
func (p Params) String(key, fallback string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return fallback
	}
	s := formatValue(v)
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// Bool reports whether key holds a truthy value ("true", true, 1).
func (p Params) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	case int:
		return v != 0
	default:
		return false
	}
}

// Int returns key as an int, or fallback when absent or not numeric.
func (p Params) Int(key string, fallback int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fallback
		}
		return n
	default:
		return fallback
	}
}

// Values encodes the parameters as a query string; slices are comma-joined.
func (p Params) Values() url.Values {
	values := make(url.Values, len(p))
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if p[k] == nil {
			continue
		}
		values.Set(k, formatValue(p[k]))
	}
	return values
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
