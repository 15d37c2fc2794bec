package methodcache

import (
	"math"
	"testing"
	"time"
)

type userID string
type level int8

func TestGenerateKey(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{"none", nil, ""},
		{"strings", []any{"a", "b"}, "a:b"},
		{"mixed", []any{1, true, 1.5, "x"}, "1:true:1.5:x"},
		{"separator escaped", []any{"a:b", "c"}, "a%3Ab:c"},
		{"space and percent", []any{"a b%"}, "a%20b%25"},
		{"plus kept distinct", []any{"a+b", "a b"}, "a%2Bb:a%20b"},
		{"empty string", []any{"", ""}, ":"},
		{"unsigned", []any{uint8(7), uint64(math.MaxUint64)}, "7:18446744073709551615"},
		{"negative", []any{int32(-3), int64(-9)}, "-3:-9"},
		{"float32", []any{float32(0.1)}, "0.1"},
		{"named types", []any{userID("u1"), level(2)}, "u1:2"},
		{"bool false", []any{false}, "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GenerateKey(tt.args...)
			if !ok {
				t.Fatalf("GenerateKey(%v) failed", tt.args)
			}
			if got != tt.want {
				t.Fatalf("GenerateKey(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestGenerateKeyDeterministic(t *testing.T) {
	a, _ := GenerateKey("x", 42, 3.25, true)
	b, _ := GenerateKey("x", 42, 3.25, true)
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	// separators cannot be forged
	c, _ := GenerateKey("x:42")
	d, _ := GenerateKey("x", 42)
	if c == d {
		t.Fatalf("distinct argument lists share key %q", c)
	}
}

func TestGenerateKeyRejectsNonPrimitives(t *testing.T) {
	s := "p"
	tests := []struct {
		name string
		args []any
	}{
		{"nil", []any{nil}},
		{"struct", []any{struct{}{}}},
		{"slice", []any{[]string{"a"}}},
		{"map", []any{map[string]int{}}},
		{"pointer", []any{&s}},
		{"time", []any{time.Now()}},
		{"func", []any{func() {}}},
		{"mixed with valid", []any{"a", 1, []int{2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if k, ok := GenerateKey(tt.args...); ok {
				t.Fatalf("GenerateKey(%v) = %q, want failure", tt.args, k)
			}
		})
	}
}
