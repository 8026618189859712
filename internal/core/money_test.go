package core

import (
	"errors"
	"strings"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"12.34", "12.34", true},
		{" 2.50 ", "2.5", true},
		{"0.001", "0.001", true},
		{"-1", "-1", true},
		{"0", "0", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"12abc", "", false},
		{"", "", false},
		{"1e3", "1000", true},
		{"999999999999.99", "999999999999.99", true},
		{"1000000000000", "", false},
		{"0.00000001", "0.00000001", true},
		{"0.000000001", "", false},
		{"1.5000000000", "1.5", true},
		{"1e50000000", "", false},
		{"1e2000000000", "", false},
		{"-1e50000000", "", false},
		{"1e-2000000000", "", false},
		{"0e999999999", "0", true},
		{"1" + strings.Repeat("0", 70), "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || FormatAmount(got) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParsePositiveAmount(t *testing.T) {
	for _, in := range []string{"0", "-0.01", "-5", "x"} {
		if _, err := ParsePositiveAmount(in); err == nil {
			t.Fatalf("%q expected error", in)
		}
	}
	if d, err := ParsePositiveAmount("0.01"); err != nil || d.String() != "0.01" {
		t.Fatalf("expected 0.01, got %s (err=%v)", d, err)
	}
}

func TestParseAmountOutOfRangeIsInvalidAmount(t *testing.T) {
	_, err := ParseAmount("1e50000000")
	if !errors.Is(err, ErrAmountOutOfRange) || !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected out-of-range invalid amount, got %v", err)
	}
}
