package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Data is a loosely typed field map collected during a flow or kept on a record.
// Values survive JSON round trips, so accessors accept both native Go values and
// their decoded forms (float64 for numbers, []interface{} for lists).
type Data map[string]any

// Clone returns a deep copy of d.
func (d Data) Clone() Data {
	if d == nil {
		return Data{}
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []int:
		return append([]int(nil), t...)
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case map[string]any:
		return Data(t).Clone()
	case Data:
		return t.Clone()
	default:
		return v
	}
}

// Merge returns a fresh map holding d overlaid with update. Neither input is modified.
func (d Data) Merge(update Data) Data {
	out := d.Clone()
	for k, v := range update {
		out[k] = cloneValue(v)
	}
	return out
}

// IsMissing reports whether key is absent, nil or the empty string.
func (d Data) IsMissing(key string) bool {
	v, ok := d[key]
	if !ok || v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}

// String returns the value at key rendered as a string, or "".
func (d Data) String(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

// Int returns the value at key as an int. ok is false when it is absent or not numeric.
func (d Data) Int(key string) (int, bool) {
	switch t := d[key].(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

// Float returns the value at key as a float64.
func (d Data) Float(key string) (float64, bool) {
	switch t := d[key].(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns the value at key as a bool.
func (d Data) Bool(key string) (bool, bool) {
	switch t := d[key].(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	default:
		return false, false
	}
}

// Ints returns the value at key as a list of ints.
func (d Data) Ints(key string) []int {
	switch t := d[key].(type) {
	case []int:
		return append([]int(nil), t...)
	case []any:
		out := make([]int, 0, len(t))
		for _, v := range t {
			switch n := v.(type) {
			case float64:
				out = append(out, int(n))
			case int:
				out = append(out, n)
			}
		}
		return out
	default:
		return nil
	}
}

// Strings returns the value at key as a list of strings.
func (d Data) Strings(key string) []string {
	switch t := d[key].(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}
