package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12", 1200, true},
		{"0", 0, true},
		{"0.005", 1, true},
		{"12.345", 1234, true},
		{"12.346", 1235, true},
		{"-5", 0, false},
		{"+5", 0, false},
		{"1.2.3", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseDecimalToCents(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseDecimalToCents(%q): expected error", tc.in)
		}
	}
}

func TestMoneyDisplay(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{7000, "70.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-1234, "-12.34"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Display(); got != tc.want {
			t.Fatalf("Display(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
