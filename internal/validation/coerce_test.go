package validation

import (
	"encoding/json"
	"testing"
)

func TestCoerceInt(t *testing.T) {
	cases := []struct {
		in     any
		want   int
		ok     bool
		failed bool
	}{
		{in: 3, want: 3, ok: true},
		{in: float64(7), want: 7, ok: true},
		{in: json.Number("12"), want: 12, ok: true},
		{in: " 5 ", want: 5, ok: true},
		{in: "", ok: false},
		{in: nil, ok: false},
		{in: 1.5, failed: true},
		{in: "x", failed: true},
		{in: true, failed: true},
	}
	for _, tc := range cases {
		got, ok, err := CoerceInt(tc.in)
		if (err != nil) != tc.failed {
			t.Fatalf("CoerceInt(%#v) err = %v", tc.in, err)
		}
		if ok != tc.ok || got != tc.want {
			t.Fatalf("CoerceInt(%#v) = %d, %v", tc.in, got, ok)
		}
	}
}

func TestCoerceBool(t *testing.T) {
	for _, in := range []any{true, "1", "TRUE", "on", float64(1)} {
		if got, err := CoerceBool(in); err != nil || !got {
			t.Fatalf("CoerceBool(%#v) = %v, %v", in, got, err)
		}
	}
	for _, in := range []any{false, "", "0", nil} {
		if got, err := CoerceBool(in); err != nil || got {
			t.Fatalf("CoerceBool(%#v) = %v, %v", in, got, err)
		}
	}
	if _, err := CoerceBool("maybe"); err == nil {
		t.Fatalf("expected error for unknown spelling")
	}
}

func TestIsURL(t *testing.T) {
	for _, in := range []string{"", "/uploads/a.png", "https://cdn.example.kz/a.png"} {
		if err := IsURL.Validate(in); err != nil {
			t.Fatalf("IsURL(%q) = %v", in, err)
		}
	}
	for _, in := range []string{"//evil.example", "javascript:alert(1)", "example.com"} {
		if err := IsURL.Validate(in); err == nil {
			t.Fatalf("IsURL(%q) should fail", in)
		}
	}
}
