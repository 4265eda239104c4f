package normalize

import (
	"errors"
	"testing"
)

func TestExtractID(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"phone_12345", "12345"},
		{"file_9", "9"},
		{"agent_77", "77"},
		{"plain", "plain"},
		{float64(42), "42"},
		// Past the float53 boundary formatting must not use exponents.
		{float64(9007199254740992), "9007199254740992"},
		{"9999999999", "9999999999"},
		{nil, ""},
		{true, ""},
	}
	for _, tc := range cases {
		if got := ExtractID(tc.in); got != tc.want {
			t.Fatalf("ExtractID(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBoundedInt32ID(t *testing.T) {
	if n, err := BoundedInt32ID("2147483647"); err != nil || n != 2147483647 {
		t.Fatalf("max int32 should parse, got (%d, %v)", n, err)
	}
	for _, bad := range []string{"2147483648", "9999999999", "-1", "abc", ""} {
		if _, err := BoundedInt32ID(bad); !errors.Is(err, ErrIDOutOfRange) {
			t.Fatalf("BoundedInt32ID(%q) should fail closed, got %v", bad, err)
		}
	}
}
