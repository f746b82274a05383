package store

import (
	"time"
)

// String returns the attribute as a string, or "" when absent or not a string.
func (d Document) String(key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}

// Float returns numeric attributes as float64. Stores decode numbers as
// int64 or float64 depending on how they were written.
func (d Document) Float(key string) float64 {
	f, _ := toFloat(d[key])
	return f
}

// Bool returns the attribute as a bool, false when absent.
func (d Document) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Time decodes a timestamp attribute. Stores keeping native timestamps hand
// back time.Time, JSON backed stores hand back RFC 3339 strings.
func (d Document) Time(key string) time.Time {
	switch v := d[key].(type) {
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// TimePtr is Time for optional attributes: a missing or null attribute
// yields nil.
func (d Document) TimePtr(key string) *time.Time {
	t := d.Time(key)
	if t.IsZero() {
		return nil
	}
	return &t
}
