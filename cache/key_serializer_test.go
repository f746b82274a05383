package cache

import (
	"strings"
	"testing"
	"time"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

type txType string

func TestDefaultKeySerializer_SerializeKey(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	may := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("WAT", 3600))

	tests := []struct {
		name   string
		method string
		args   []any
		want   string
	}{
		{
			name:   "no args",
			method: "ListFields",
			want:   "ListFields",
		},
		{
			name:   "principal scoped list",
			method: "ListTransactions",
			args:   []any{"u1", false},
			want:   joinWithSeparator("ListTransactions", "u1", "false"),
		},
		{
			name:   "numbers",
			method: "Page",
			args:   []any{1, 2.5, uint8(3)},
			want:   joinWithSeparator("Page", "1", "2.5", "3"),
		},
		{
			name:   "named string type",
			method: "ListByType",
			args:   []any{txType("income")},
			want:   joinWithSeparator("ListByType", "income"),
		},
		{
			name:   "time is normalized to UTC",
			method: "Since",
			args:   []any{may},
			want:   joinWithSeparator("Since", "2024-05-01T09:00:00Z"),
		},
		{
			name:   "nil values",
			method: "Get",
			args:   []any{nil, (*int)(nil), ([]string)(nil)},
			want:   joinWithSeparator("Get", "nil", "nil", "slice:nil"),
		},
		{
			name:   "string slice",
			method: "GetMany",
			args:   []any{[]string{"a", "b"}},
			want:   joinWithSeparator("GetMany", "slice[2]:{a,b}"),
		},
		{
			name:   "int slice",
			method: "GetMany",
			args:   []any{[]int{1, 2}},
			want:   joinWithSeparator("GetMany", "slice[2]:{1,2}"),
		},
		{
			name:   "map falls back to sorted json",
			method: "Filter",
			args:   []any{map[string]int{"b": 2, "a": 1}},
			want:   joinWithSeparator("Filter", `json:{"a":1,"b":2}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.method, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_Deterministic(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	args := []any{"u1", true, map[string]any{"z": 1, "y": []int{1}}}

	first := serializer.SerializeKey("ListTransactions", args...)
	for i := 0; i < 20; i++ {
		if got := serializer.SerializeKey("ListTransactions", args...); got != first {
			t.Fatalf("key changed between calls: %q != %q", got, first)
		}
	}
}

func TestPrefixedKeySerializer(t *testing.T) {
	serializer := NewPrefixedKeySerializer("users")

	got := serializer.SerializeKey("profile", "u1")
	want := joinWithSeparator("users", "profile", "u1")
	if got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}
}

func TestDefaultKeySerializer_Functions(t *testing.T) {
	serializer := NewDefaultKeySerializer()
	fn := func() {}

	a := serializer.SerializeKey("Where", fn)
	b := serializer.SerializeKey("Where", fn)
	if a != b {
		t.Errorf("same function must give the same key: %q != %q", a, b)
	}
	if !strings.HasPrefix(a, joinWithSeparator("Where", "func:")) {
		t.Errorf("unexpected function key %q", a)
	}
}
