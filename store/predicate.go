package store

import (
	"fmt"
	"strings"
	"time"
)

// Operator is a comparison supported by every store implementation.
type Operator string

const (
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
)

// Predicate filters documents on a single attribute.
type Predicate struct {
	Field string
	Op    Operator
	Value any
}

// Where builds an equality predicate.
func Where(field string, value any) Predicate {
	return Predicate{Field: field, Op: OpEqual, Value: value}
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %v", p.Field, p.Op, p.Value)
}

// Matches evaluates every predicate against doc. It is used by the stores
// that filter in process.
func Matches(doc Document, preds ...Predicate) bool {
	for _, p := range preds {
		if !p.match(doc) {
			return false
		}
	}
	return true
}

func (p Predicate) match(doc Document) bool {
	v, ok := doc[p.Field]
	if !ok {
		// a missing attribute never matches, as in Firestore
		return false
	}
	c, comparable := compare(v, p.Value)
	switch p.Op {
	case OpEqual:
		return comparable && c == 0
	case OpNotEqual:
		return !comparable || c != 0
	case OpLess:
		return comparable && c < 0
	case OpLessOrEqual:
		return comparable && c <= 0
	case OpGreater:
		return comparable && c > 0
	case OpGreaterOrEqual:
		return comparable && c >= 0
	}
	return false
}

func compare(a, b any) (int, bool) {
	a, b = coerceTime(a, b), coerceTime(b, a)
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok || ab != bb {
			return 1, ok
		}
		return 0, true
	}
	as, aok := asString(a)
	bs, bok := asString(b)
	if !aok || !bok {
		return 0, false
	}
	return strings.Compare(as, bs), true
}

// coerceTime parses v as RFC 3339 when the other operand is a timestamp.
// JSON backed stores keep timestamps as strings.
func coerceTime(v, other any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if _, isTime := other.(time.Time); !isTime {
		return v
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return v
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
