package toolexecutor

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Args are the validated, default-filled arguments of one call.
type Args map[string]interface{}

// Has reports whether key is present with a non-empty value.
func (a Args) Has(key string) bool {
	v, ok := a[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

// String returns the string argument or "".
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the integer argument or 0.
func (a Args) Int(key string) int {
	return int(a.Float(key))
}

// Float returns the numeric argument or 0.
func (a Args) Float(key string) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// Strings returns a string array argument.
func (a Args) Strings(key string) []string {
	items, ok := a[key].([]interface{})
	if !ok {
		if s, isStrings := a[key].([]string); isStrings {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprint(item))
	}
	return out
}

// Object returns an object argument.
func (a Args) Object(key string) map[string]interface{} {
	obj, _ := a[key].(map[string]interface{})
	return obj
}

// Rows returns a two-dimensional array argument (spreadsheet values).
func (a Args) Rows(key string) [][]interface{} {
	items, ok := a[key].([]interface{})
	if !ok {
		rows, _ := a[key].([][]interface{})
		return rows
	}
	out := make([][]interface{}, 0, len(items))
	for _, item := range items {
		row, _ := item.([]interface{})
		out = append(out, row)
	}
	return out
}
