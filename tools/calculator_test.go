package tools

import (
	"context"
	"testing"
)

func TestCalculatorExpressions(t *testing.T) {
	c := &CalculatorTool{}
	tests := []struct{ in, want string }{
		{"1 + 2", "3"},
		{"5 - 2", "3"},
		{"12 * (3 + 4)", "84"},
		{"7 / 2", "3.5"},
		{"7 % 4", "3"},
		{"2 ** 10", "1024"},
		{"sqrt(9)", "3"},
		{"abs(-4.5)", "4.5"},
		{"round(pi * 100) / 100", "3.14"},
		{"  floor(2.7) + ceil(0.2) ", "3"},
	}
	for _, tc := range tests {
		got, err := c.Execute(context.Background(), tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("%s => %q (%v), want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestCalculatorErrors(t *testing.T) {
	c := &CalculatorTool{}
	for _, in := range []string{"", "1 +", "1 / 0", "sqrt(-1)", "ln(0)", "x + 1", "1 > 2", "sqrt(1, 2)"} {
		if _, err := c.Execute(context.Background(), in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
