package numlit

import (
	"errors"
	"math"
	"testing"
)

func TestParseInt(t *testing.T) {
	tests := []struct {
		in   string
		base int
		want int64
	}{
		{"42", 10, 42},
		{"  -17\n", 10, -17},
		{"+5", 10, 5},
		{"1_000", 10, 1000},
		{"ff", 16, 255},
		{"0xff", 16, 255},
		{"0x_ff", 0, 255},
		{"0o17", 0, 15},
		{"0b101", 0, 5},
		{"-0b11", 0, -3},
		{"z", 36, 35},
		{"000", 0, 0},
		{"010", 10, 10},
	}
	for _, tt := range tests {
		got, err := ParseInt(tt.in, tt.base)
		if err != nil {
			t.Fatalf("ParseInt(%q, %d): unexpected error %v", tt.in, tt.base, err)
		}
		if got != tt.want {
			t.Fatalf("ParseInt(%q, %d): expected %d, got %d", tt.in, tt.base, tt.want, got)
		}
	}
}

func TestParseIntErrors(t *testing.T) {
	tests := []struct {
		in   string
		base int
		want error
	}{
		{"", 10, ErrSyntax},
		{"12a", 10, ErrSyntax},
		{"1__0", 10, ErrSyntax},
		{"_1", 10, ErrSyntax},
		{"010", 0, ErrSyntax},
		{"0x", 0, ErrSyntax},
		{"0xff", 10, ErrSyntax},
		{"9223372036854775808", 10, ErrRange},
		{"1", 1, ErrBase},
		{"1", 37, ErrBase},
	}
	for _, tt := range tests {
		_, err := ParseInt(tt.in, tt.base)
		if !errors.Is(err, tt.want) {
			t.Fatalf("ParseInt(%q, %d): expected %v, got %v", tt.in, tt.base, tt.want, err)
		}
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1.5", 1.5},
		{" -2.25 ", -2.25},
		{"1.", 1},
		{".5", 0.5},
		{"1e3", 1000},
		{"1_0.2_5", 10.25},
		{"2.5E-1", 0.25},
		{"7", 7},
	}
	for _, tt := range tests {
		got, err := ParseFloat(tt.in)
		if err != nil {
			t.Fatalf("ParseFloat(%q): unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseFloat(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}

	if v, _ := ParseFloat("-Infinity"); !math.IsInf(v, -1) {
		t.Fatalf("expected -inf, got %v", v)
	}
	if v, _ := ParseFloat("nan"); !math.IsNaN(v) {
		t.Fatalf("expected nan, got %v", v)
	}
	if v, _ := ParseFloat("1e999"); !math.IsInf(v, 1) {
		t.Fatalf("expected overflow to inf, got %v", v)
	}
}

func TestParseFloatErrors(t *testing.T) {
	for _, in := range []string{"", ".", "1e", "abc", "1..2", "0x10", "1_"} {
		if _, err := ParseFloat(in); !errors.Is(err, ErrSyntax) {
			t.Fatalf("ParseFloat(%q): expected ErrSyntax, got %v", in, err)
		}
	}
}
