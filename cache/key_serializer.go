package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

type defaultKeySerializer struct {
	prefix string
}

// NewDefaultKeySerializer returns the serializer used for query and profile
// keys, e.g. "ListTransactions::u1::false".
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// NewPrefixedKeySerializer namespaces every key with prefix.
func NewPrefixedKeySerializer(prefix string) KeySerializer {
	return &defaultKeySerializer{prefix: prefix}
}

// SerializeKey joins method and the serialized args with KeySeparator.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) string {
	parts := make([]string, 0, len(args)+2)
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	parts = append(parts, method)
	for _, arg := range args {
		parts = append(parts, serializeValue(arg))
	}
	return strings.Join(parts, KeySeparator)
}

func serializeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return t
	case bool:
		return fmt.Sprintf("%t", t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return "nil"
		}
		return t.UTC().Format(time.RFC3339Nano)
	case []string:
		if t == nil {
			return "slice:nil"
		}
		return fmt.Sprintf("slice[%d]:{%s}", len(t), strings.Join(t, ","))
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		// stable only for the lifetime of the process
		return fmt.Sprintf("func:%p", v)
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return serializeValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = serializeValue(rv.Index(i).Interface())
		}
		return fmt.Sprintf("slice[%d]:{%s}", len(parts), strings.Join(parts, ","))
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return fmt.Sprintf("%v", v)
	}

	// maps and structs: encoding/json sorts map keys, which keeps the key
	// deterministic
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("fallback:%T", v)
	}
	return "json:" + string(data)
}
