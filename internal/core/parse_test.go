package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"5 926,24", "5926.24"},
		{"-41,80", "-41.8"},
		{"1.234,56", "1234.56"},
		{"1.234", "1234"},
		{"12.34", "12.34"},
		{"12,34", "12.34"},
		{"-0,50", "-0.5"},
		{"100", "100"},
		{"", "0"},
		{"   ", "0"},
		{"abc", "0"},
		{"1,2,3", "0"},
	}
	for _, tc := range cases {
		got := ParseAmount(tc.in)
		if got.String() != tc.out {
			t.Errorf("ParseAmount(%q) = %s, want %s", tc.in, got.String(), tc.out)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"2024-01-15", "2024-01-15"},
		{"15/01/2024", "2024-01-15"},
		{"15/01/24", "2024-01-15"},
		{"5/1/2024", "2024-01-05"},
		{"2024-01-15T10:30:00Z", "2024-01-15"},
		{"2024/01/15", "2024-01-15"},
		{"", ""},
		{"not-a-date", ""},
		{"31/02/2024", ""}, // invalid calendar date
	}
	for _, tc := range cases {
		if got := ParseDate(tc.in); got != tc.out {
			t.Errorf("ParseDate(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
