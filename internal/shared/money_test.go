package shared

import "testing"

func TestRoundTRY(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{45.5, 45.5},
		{1.005, 1.01},
		{2.344, 2.34},
		{-2.345, -2.35},
		{0, 0},
	}
	for _, tt := range tests {
		if got := RoundTRY(tt.in); got != tt.want {
			t.Errorf("RoundTRY(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestFormatTRY(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"Whole", 20, "₺20.00"},
		{"Fraction", 45.5, "₺45.50"},
		{"Rounded", 33.333333, "₺33.33"},
		{"Negative", -3, "-₺3.00"},
		{"NegativeRoundsToZero", -0.001, "₺0.00"},
		{"Large", 12345.678, "₺12345.68"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTRY(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(38.888); got != "38.9%" {
		t.Errorf("Expected 38.9%%, got %q", got)
	}
}
